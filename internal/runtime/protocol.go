package runtime

import "fmt"

// Protocol declares a set of method names (spec §4.6's defprotocol). It is
// long-lived infrastructure, like a Namespace, not traced as a Value
// payload even though it is itself handed around as one (mirrors spec
// §3.4's "Vars ... are not GC-traced as values" rule extended to
// Protocols, which are equally append-only and process-lifetime).
type Protocol struct {
	Name    string
	Methods []string
}

func (p *Protocol) Type() ValueType { return TypeProtocol }
func (p *Protocol) Print() string   { return fmt.Sprintf("#<protocol %s>", p.Name) }
func (p *Protocol) Hash() uint32    { return hashString("protocol:" + p.Name) }

// ProtocolFn is the callable Var a protocol method name resolves to: it
// dispatches on the concrete ValueType tag of its first argument. Grounded
// on internal/symbols/symbol_table_instance_helpers.go's (trait, type) ->
// implementation lookup, repurposed from compile-time instance resolution
// to runtime tag dispatch.
type ProtocolFn struct {
	ProtoName  string
	MethodName string
}

func (p *ProtocolFn) Type() ValueType { return TypeProtocolFn }
func (p *ProtocolFn) Print() string {
	return fmt.Sprintf("#<protocol-fn %s/%s>", p.ProtoName, p.MethodName)
}
func (p *ProtocolFn) Hash() uint32 {
	return hashString("protocolfn:" + p.ProtoName + "/" + p.MethodName)
}

// ImplKey identifies one (protocol, type, method) slot in the process-global
// extension table.
type implKey struct {
	proto  string
	typ    ValueType
	method string
}

// ProtocolRegistry is the process-global table extend-type populates and
// protocol method dispatch consults, keyed by (proto, type-tag) per spec
// §4.6. It lives in the Env as ordinary infrastructure (§3.4), not on the
// managed value heap.
type ProtocolRegistry struct {
	protocols map[string]*Protocol
	impls     map[implKey]Value
}

func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{protocols: map[string]*Protocol{}, impls: map[implKey]Value{}}
}

func (r *ProtocolRegistry) Declare(p *Protocol) { r.protocols[p.Name] = p }

func (r *ProtocolRegistry) Protocol(name string) (*Protocol, bool) {
	p, ok := r.protocols[name]
	return p, ok
}

func (r *ProtocolRegistry) Extend(proto string, typ ValueType, method string, fn Value) {
	r.impls[implKey{proto, typ, method}] = fn
}

// Resolve finds the implementation fn for (proto, typ, method), the
// no_protocol_impl case being (nil, false).
func (r *ProtocolRegistry) Resolve(proto string, typ ValueType, method string) (Value, bool) {
	fn, ok := r.impls[implKey{proto, typ, method}]
	return fn, ok
}
