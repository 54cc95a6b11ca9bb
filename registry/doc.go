/*
Package registry keeps a process-wide table of identifier descriptors.

Adapters accept a descriptor explicitly; the registry lets code that only knows
the entity type (generated registration code, the fieldstore.Open factory)
look it up:

	func init() {
	    registry.RegisterDescriptor(identity.MustNew("id",
	        func(p *Person) uuid.UUID { return p.ID },
	        identity.UUIDKey,
	    ))
	}

	d, ok := registry.GetDescriptor[uuid.UUID, Person]()

The registry is thread-safe and should be populated during initialization,
typically in init() functions or through generated code.
*/
package registry
