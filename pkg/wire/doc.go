// Package wire defines the message types and codec for the bridge protocol.
//
// The bridge speaks newline-delimited JSON over a serial byte stream. Each
// message is a flat key-value record with an "action" field; the firmware
// echoes the action back in its reply, which is how replies are correlated
// with commands.
//
// # Command / Response Pairs
//
//	action       request fields        response fields
//	scan         -                     devices, names
//	get_devices  -                     devices, names
//	select       addr                  status, name, addr
//	resume       -                     status
//	pause        -                     status
//	get_status   -                     status, uptime, device_name
//	bulk_rw      reads and/or writes   status, values (aligned with reads)
//
// # Statuses
//
// "OK" on success, "PAUSED" when a register transaction is rejected because
// the link is paused. A missing reply is a timeout, not an error payload.
package wire
