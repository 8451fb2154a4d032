// Package device decodes voltage-regulator registers into physical
// measurements and protection states.
//
// Each supported controller gets its own decoder type owning that part's
// register map, scaling constants and protection bit layout. Decoders are
// a closed set: the Registry maps the device-type name reported by the
// bridge to the matching variant; adding a part means adding a variant.
//
// A decoder only ever performs bulk register reads through the
// RegisterAccess interface and never touches session state. Each snapshot
// call performs exactly one bulk read followed by pure decoding. When the
// read yields no data or a short result, the decoder returns a zero-valued
// snapshot with Valid set to false instead of failing.
//
// # Decoding rules
//
// Every device applies a linear scale factor (LSB weight) per raw code to
// obtain physical units, and fixed-position bitmasks per status register to
// obtain protection flags. Threshold and phase registers decode through
// small lookup tables with a documented default for out-of-table codes.
package device
