package bus

// PublishOptions controls message publishing.
// Key is used as the partition key by runtimes that have one.
type PublishOptions struct {
	Key     string
	Headers map[string]string
}
