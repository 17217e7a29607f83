// Package gate bounds how many descriptor parses run at once across the
// whole process.
//
// A single Gate is built at startup with a fixed capacity and handed to
// every refresh coordinator, whatever entity kind it serves. Waiters are
// admitted in arrival order and stop waiting when their context ends.
package gate
