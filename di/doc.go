// Package di is the runtime contract code generated by wiregen compiles against.
//
// A generated routine receives a Registrar and an Environment:
//
//	func RegisterServices(r di.Registrar, env di.Environment) {
//		if !r.Mark("shop.RegisterServices") {
//			return
//		}
//		r.Register(di.Scoped, di.TypeOf[*OrderService](), func(sp di.Resolver) (any, error) {
//			return NewOrderService(di.Get[*sql.DB](sp)), nil
//		})
//	}
//
// Any container can implement Registrar. The package itself carries no container; it
// provides the typed resolution helpers used inside factories (Get, All, Value, Section,
// MonitorOf, SnapshotOf), a map-backed Config, and Recorder, a small in-memory registrar
// with scopes for tests of generated code.
//
// Config keys are ':'-separated paths ("Orders:Limit") and are matched case-insensitively.
package di
