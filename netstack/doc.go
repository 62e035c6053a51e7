// Package netstack defines the network-stack handle shared by the packet pump
// and the session loop, the DHCP-style configuration snapshot, and the address
// resolver that waits for configuration to become available.
//
// The Stack interface abstracts the platform network stack: the packet pump
// that drives it, configuration readiness, and socket creation. HostStack is
// the production implementation layered on the operating system stack.
package netstack
