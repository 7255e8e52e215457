package analysis

import (
	"go/types"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// NameCache caches canonical symbol names. Reachable-set results from
// different queries are merged by name to bridge generic instantiations, so
// the same objects are named over and over; the cache is concurrent because
// queries run in parallel.
type NameCache struct {
	objCache  *xsync.Map[types.Object, string]
	typeCache *xsync.Map[types.Type, string]
}

func NewNameCache() *NameCache {
	return &NameCache{
		objCache:  xsync.NewMap[types.Object, string](),
		typeCache: xsync.NewMap[types.Type, string](),
	}
}

// ComputeObjectName generates a canonical name for an object.
// Functions become packagePath.name (with [T, ...] appended for generics);
// methods include the receiver type, e.g. "path.*Buffer.Flush".
func (c *NameCache) ComputeObjectName(obj types.Object) string {
	if obj == nil {
		return ""
	}
	if name, ok := c.objCache.Load(obj); ok {
		return name
	}
	name := computeObjectName(obj)
	c.objCache.Store(obj, name)
	return name
}

// ComputeTypeName generates a canonical name for a type: package-qualified
// for named types, "*" prefixed for pointers, the type's own string form
// otherwise.
func (c *NameCache) ComputeTypeName(typ types.Type) string {
	if typ == nil {
		return ""
	}
	if name, ok := c.typeCache.Load(typ); ok {
		return name
	}
	name := c.computeTypeName(typ)
	c.typeCache.Store(typ, name)
	return name
}

func computeObjectName(obj types.Object) string {
	var b strings.Builder
	if pkg := obj.Pkg(); pkg != nil {
		b.WriteString(pkg.Path())
		b.WriteByte('.')
	}

	fn, ok := obj.(*types.Func)
	if !ok {
		b.WriteString(obj.Name())
		return b.String()
	}
	sig, ok := fn.Type().(*types.Signature)
	if !ok {
		b.WriteString(obj.Name())
		return b.String()
	}

	if recv := sig.Recv(); recv != nil {
		recvType := recv.Type()
		if ptr, ok := recvType.(*types.Pointer); ok {
			recvType = ptr.Elem()
			b.WriteByte('*')
		}
		recvName := genericTypeName(recvType)
		// Strip the package qualifier; the builder already carries it.
		if i := strings.LastIndexByte(recvName, '.'); i >= 0 {
			recvName = recvName[i+1:]
		}
		b.WriteString(recvName)
		b.WriteByte('.')
		b.WriteString(obj.Name())
		return b.String()
	}

	b.WriteString(obj.Name())
	writeTypeParams(&b, sig.TypeParams())
	return b.String()
}

func (c *NameCache) computeTypeName(typ types.Type) string {
	switch t := typ.(type) {
	case *types.Pointer:
		elem := c.ComputeTypeName(t.Elem())
		if elem == "" {
			return ""
		}
		return "*" + elem

	case *types.Named:
		obj := t.Obj()
		if obj == nil {
			return typ.String()
		}
		var b strings.Builder
		if pkg := obj.Pkg(); pkg != nil {
			b.WriteString(pkg.Path())
			b.WriteByte('.')
		}
		b.WriteString(genericTypeName(t))
		return b.String()

	default:
		// Basic types, slices, maps, signatures: the string form carries
		// everything the report needs.
		return typ.String()
	}
}

// genericTypeName returns the type name preserving generic syntax: the
// template form "Container[T]" or the instantiated form "Container[int]".
func genericTypeName(typ types.Type) string {
	named, ok := typ.(*types.Named)
	if !ok {
		return typ.String()
	}
	name := named.Obj().Name()

	if args := named.TypeArgs(); args != nil && args.Len() > 0 {
		var b strings.Builder
		b.WriteString(name)
		b.WriteByte('[')
		for i := range args.Len() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(args.At(i).String())
		}
		b.WriteByte(']')
		return b.String()
	}

	if params := named.TypeParams(); params != nil && params.Len() > 0 {
		var b strings.Builder
		b.WriteString(name)
		writeTypeParams(&b, params)
		return b.String()
	}

	return name
}

func writeTypeParams(b *strings.Builder, params *types.TypeParamList) {
	if params == nil || params.Len() == 0 {
		return
	}
	b.WriteByte('[')
	for i := range params.Len() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(params.At(i).Obj().Name())
	}
	b.WriteByte(']')
}
