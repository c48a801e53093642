/*
Package servicebus provides a thin, opinionated facade over a messaging runtime.
It binds consumer endpoints, runs consumption until shutdown, and sends commands
and publishes events through the same runtime while remaining decoupled from
concrete transports via interfaces.
*/
package servicebus
