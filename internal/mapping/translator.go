package mapping

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"jremap/internal/descriptor"
)

// DefaultCacheSize is the class-name cache size used when none is given.
const DefaultCacheSize = 4096

// Translator answers obfuscated-to-deobfuscated lookups against a Store.
// It never mutates the store, and its cache is safe for concurrent use, so
// one Translator may serve many goroutines.
type Translator struct {
	store *Store
	cache *lru.Cache[string, string] // nil when caching is disabled
}

// NewTranslator returns a translator over s. cacheSize < 0 disables the
// class-name cache; 0 selects DefaultCacheSize.
func NewTranslator(s *Store, cacheSize int) (*Translator, error) {
	t := &Translator{store: s}
	if cacheSize == 0 {
		cacheSize = DefaultCacheSize
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, string](cacheSize)
		if err != nil {
			return nil, err
		}
		t.cache = cache
	}
	return t, nil
}

// Store returns the underlying mapping store.
func (t *Translator) Store() *Store { return t.store }

// ClassName translates an internal class name. Each '$' segment of a nested
// name is translated through its own nested mapping; segments without a
// mapping are kept. Array class names are translated as types.
func (t *Translator) ClassName(name string) string {
	if t.cache != nil {
		if v, ok := t.cache.Get(name); ok {
			return v
		}
	}
	out := t.className(name)
	if t.cache != nil {
		t.cache.Add(name, out)
	}
	return out
}

func (t *Translator) className(name string) string {
	if strings.HasPrefix(name, "[") {
		typ, err := descriptor.ParseType(name)
		if err != nil {
			return name
		}
		return typ.MapClass(t.ClassName).String()
	}
	path := t.store.lookup(name)
	if len(path) == 0 {
		return name
	}
	segs := splitNested(name)
	for i := range segs {
		if i < len(path) && path[i].Deobf != "" {
			segs[i] = path[i].Deobf
		}
	}
	return strings.Join(segs, "$")
}

// TranslateClass returns the translated identity of c, or c itself when no
// mapping applies.
func (t *Translator) TranslateClass(c ClassEntry) ClassEntry {
	return ClassEntry{Name: t.ClassName(c.Name)}
}

// FieldName returns the mapped name of a field, if there is one.
func (t *Translator) FieldName(f FieldEntry) (string, bool) {
	m, ok := t.store.Class(f.Class.Name)
	if !ok {
		return "", false
	}
	name, ok := m.Fields[MemberKey{f.Name, f.Type.String()}]
	return name, ok && name != ""
}

// BehaviorName returns the mapped name of a method, if there is one.
// Constructors and static initializers never have one.
func (t *Translator) BehaviorName(b BehaviorEntry) (string, bool) {
	if b.IsConstructor() || b.IsStaticInitializer() {
		return "", false
	}
	m, ok := t.store.Class(b.Class.Name)
	if !ok {
		return "", false
	}
	mm, ok := m.Methods[MemberKey{b.Name, b.Signature.String()}]
	if !ok || mm.Deobf == "" {
		return "", false
	}
	return mm.Deobf, true
}

// TranslateField translates every part of a field identity.
func (t *Translator) TranslateField(f FieldEntry) FieldEntry {
	out := FieldEntry{
		Class: t.TranslateClass(f.Class),
		Name:  f.Name,
		Type:  t.TranslateType(f.Type),
	}
	if name, ok := t.FieldName(f); ok {
		out.Name = name
	}
	return out
}

// TranslateBehavior translates every part of a behavior identity.
func (t *Translator) TranslateBehavior(b BehaviorEntry) BehaviorEntry {
	out := BehaviorEntry{
		Class:     t.TranslateClass(b.Class),
		Name:      b.Name,
		Signature: t.TranslateSignature(b.Signature),
	}
	if name, ok := t.BehaviorName(b); ok {
		out.Name = name
	}
	return out
}

// TranslateType substitutes the class name embedded in typ.
func (t *Translator) TranslateType(typ descriptor.Type) descriptor.Type {
	return typ.MapClass(t.ClassName)
}

// TranslateSignature substitutes every class name embedded in sig.
func (t *Translator) TranslateSignature(sig descriptor.Signature) descriptor.Signature {
	return sig.MapClasses(t.ClassName)
}
