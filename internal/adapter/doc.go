// Package adapter connects the protocol layers to real devices.
//
// SSHSession is the interactive transport: an SSH shell with a pseudo
// terminal whose output is buffered and matched against prompt patterns.
// Login brings a fresh shell to privileged exec mode with paging disabled.
//
// Facts gathers version and inventory facts from a logged-in device, and
// InventoryScanner finds management endpoints with nmap. Both record what
// they learn in the oper cache under inventory/.
package adapter
