// Package engine is the reference image engine behind the bridge.
//
// It holds images as band-interleaved float64 samples tagged with a band
// format, and exposes its operations through the same introspection and
// build protocol a native engine would: operations are looked up by name,
// enumerate their arguments with flags, take inputs through Set, run in
// Build and hand back outputs through Get.
//
// # Operations
//
//	black, add, subtract, multiply, divide, linear, invert   arithmetic
//	avg, min, max, getpoint                                  statistics
//	copy, extract_area, bandjoin, bandjoin_const, sum,
//	cast, flip, im_fliphor                                   bands and geometry
//	draw_rect, draw_circle                                   in-place drawing
//	imageload_buffer, pngsave_buffer, tiffsave_buffer        codecs
//
// RegisterKernel adds operations backed by WebAssembly modules run under
// wazero.
//
// # Sharing
//
// copy and extract_area return views that share their input's buffer.
// Draw operations write into their image argument, so callers must pass an
// unshared copy when the input has to survive (see CopyMemory).
//
// # Cache
//
// Build results are kept in an LRU keyed by operation name and inputs,
// where images compare by identity. Entries hold their inputs, so a key
// can never be matched by a different image at a reused address. The
// limits are set through Config and the SetCache methods.
package engine
