/*
Package rabbitmq provides a RabbitMQ runtime for consumer endpoints.
Each endpoint is a durable queue; each consumed message type is a durable
fanout exchange bound to the queues that consume it, so events reach every
handler queue and commands land on their single message-type queue.
Publish injects trace headers through a bus.HeaderPropagator (a no-op by default).
*/
package rabbitmq
