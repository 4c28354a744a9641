// Package ports defines the boundary contracts of the dispatcher core.
//
// The core never performs network or disk I/O itself; persistence,
// message delivery, and cross-replica coordination happen behind the
// StateStore, MessageSink, and DistributedLocker interfaces, implemented
// by the adapters packages (or by the host application).
package ports
