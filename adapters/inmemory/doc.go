/*
Package inmemory provides a process-local runtime for tests, examples and
single-binary deployments. Channels are plain subscriber lists; Publish routes
by message type name the way a broker routes by exchange, subject or topic.
*/
package inmemory
