// Package wiregen plans dependency injection registrations from service descriptors.
//
// The repository continues a progression of explicit wiring styles:
//
//   - runtime injectors and plain constructors, written by hand
//   - generated facades and graph composition roots
//   - generated constructors plus one registration routine per package (wiregen)
//
// wiregen works on declarations only. A pass takes a flat list of descriptors and
// produces constructors, a registration plan and a list of diagnostics. It never builds
// an object graph; the container that receives the registrations does that at runtime.
//
// Packages, leaves first:
//   - descriptor: the descriptor model, validation and YAML/JSON loading
//   - typeexpr: Go type expressions, substitution and unification
//   - hierarchy: base-type chains with generic arguments
//   - graph: single and collection dependency binding
//   - condition: activation conditions folded into guards
//   - validator: cycle and lifetime containment checks
//   - plan: registration entries per descriptor
//   - synth: one pass over all of the above
//   - emit: Go source of the constructors and the registration routine
//   - di: the runtime contract generated code compiles against
//   - cmd/wiregen: the generator command
package wiregen
