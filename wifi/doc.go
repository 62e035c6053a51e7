// Package wifi supervises the wireless association of a linknode device.
//
// The Manager keeps the link associated with the target network forever: it
// idempotently brings the radio up, attempts association with role-dependent
// failure policies, suspends on a disconnect notification while associated,
// and re-associates after any loss. It never gives up and never returns a
// terminal error to a caller.
//
// The Radio interface abstracts the wireless driver. HostRadio adapts an
// operating-system managed interface whose association is owned by the
// platform supplicant.
package wifi
