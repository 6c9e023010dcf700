package orders

const TopicOrderStatusChanged = "order.status.changed"

// Partition key = order_id, so events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
