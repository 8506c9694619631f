// Command wiregen plans and generates container registration code from service descriptors.
//
// wiregen reads a flat list of service descriptors (YAML or JSON), resolves base-type
// chains and generic arguments, binds every dependency, composes activation conditions,
// validates lifetimes and cycles, and writes two Go files into one package:
//
//   - a constructors file: one New<Type>(...) per service, base dependencies first
//   - a registration file: one idempotent routine wiring every service into a di.Registrar
//
// Nothing is resolved at generation time. The generated routine only describes the
// registrations; a container implementing di.Registrar performs them at runtime.
//
// Descriptors
//
//	services:
//	  - identity: OrderService
//	    lifetime: scoped
//	    interfaces: [Orders]
//	    dependencies:
//	      - type: "*sql.DB"
//	      - kind: collection
//	        type: Discount
//	      - kind: config
//	        type: OrderOptions
//	        path: Orders
//	        binding: section
//
//	  - identity: Loyalty
//	    interfaces: [Discount, Rewarder]
//	    sharing: separate
//	    conditions:
//	      - subject: config
//	        key: Features:Loyalty
//	        values: ["on"]
//
// Several descriptor files may be given; declaration order is file order, then the
// order within each file. Output order follows declaration order.
//
// Configuration
//
// wiregen looks for ./wiregen.yaml unless -c names another file. Relative paths in the
// file are relative to the file itself; paths given as flags are relative to the working
// directory. Flags override file values.
//
//	descriptors: [services.yaml]
//	package: shop
//	routine: RegisterServices
//	constructorsOut: wiregen_constructors.gen.go
//	registrationOut: wiregen_registration.gen.go
//	diImport: github.com/sghaida/wiregen/di
//	imports:
//	  store: example.com/shop/internal/store
//
// Package qualifiers in descriptor types ("sql.DB", "store.Cache[K, V]") are resolved, in
// order, against the configured imports, the imports of the package's own files and the
// imports of previous outputs. Only imports the generated code uses are written. When
// diImport is empty it is inferred from the package's imports, then from the module
// wiregen itself was built from.
//
// Diagnostics
//
// Findings are printed as "severity CODE: message". Warnings (cycles, lifetime
// containment, unsatisfied dependencies) never block generation. Malformed descriptors
// are reported as errors and dropped; every other descriptor is still generated.
//
// wiregen exits non-zero when an error was reported, or a warning under --werror. The
// outputs are written either way.
//
// Typical go:generate usage
//
//	//go:generate go run github.com/sghaida/wiregen/cmd/wiregen -c wiregen.yaml
//
// Then:
//
//	go generate ./...
//
// Use --explain to print the effective lifetime, guard and entries of every planned service.
package main
