package rabbitmq

// QueueConfig описывает очередь и ключ маршрутизации,
// которым она привязана к обменнику уведомлений.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди воркера почтовых уведомлений.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.subscription", RoutingKey: "subscription.created"},
		{QueueName: "notifications.subscription", RoutingKey: "subscription.cancelled"},
		{QueueName: "notifications.account", RoutingKey: "password.reset"},
	}
}
