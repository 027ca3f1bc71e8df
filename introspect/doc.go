// Package introspect discovers operation signatures at first use.
//
// Describe creates a transient operation, reads its argument schema and
// classifies every construct argument into required and optional inputs and
// outputs. Descriptors are cached per engine until Forget;
// For returns the cache for an engine.
//
//	d, err := introspect.Describe(eng, "min")
//	// d.RequiredInput  = [in]
//	// d.RequiredOutput = [out]
//	// d.OptionalInput  = [size]
//	// d.OptionalOutput = [x y]
//
// The cache also renders help text (Docstring) and reStructuredText reference
// docs (Sphinx, SphinxAll) from descriptors. Deprecated operations have no
// docs.
package introspect
