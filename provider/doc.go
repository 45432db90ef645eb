// Package provider is a small generic registry for named, swappable
// backends. Implementations register a factory in init() and the
// composition root creates the configured instances:
//
//	var Registry = provider.NewRegistry[Supplier, Deps]()
//
//	func init() {
//	    supplier.Registry.RegisterFactory("fast", New)
//	}
package provider
