package graphdesc

import fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"

var formats = map[string]fg.Format{
	"r8_unorm":              fg.FormatR8Unorm,
	"rgba8_unorm":           fg.FormatRGBA8Unorm,
	"rgba8_unorm_srgb":      fg.FormatRGBA8UnormSrgb,
	"bgra8_unorm":           fg.FormatBGRA8Unorm,
	"bgra8_unorm_srgb":      fg.FormatBGRA8UnormSrgb,
	"r32_float":             fg.FormatR32Float,
	"rg16_float":            fg.FormatRG16Float,
	"rgba16_float":          fg.FormatRGBA16Float,
	"rgba32_float":          fg.FormatRGBA32Float,
	"r32_uint":              fg.FormatR32Uint,
	"depth24_plus":          fg.FormatDepth24Plus,
	"depth24_plus_stencil8": fg.FormatDepth24PlusStencil8,
	"depth32_float":         fg.FormatDepth32Float,
}

var passFlags = map[string]fg.PassFlags{
	"raster":        fg.PassRaster,
	"compute":       fg.PassCompute,
	"async_compute": fg.PassAsyncCompute,
	"copy":          fg.PassCopy,
}

var bufferUsages = map[string]fg.BufferUsage{
	"vertex":   fg.BufferUsageVertex,
	"index":    fg.BufferUsageIndex,
	"indirect": fg.BufferUsageIndirect,
	"uniform":  fg.BufferUsageUniform,
	"storage":  fg.BufferUsageStorage,
	"copy_src": fg.BufferUsageCopySrc,
	"copy_dst": fg.BufferUsageCopyDst,
}

var textureUsages = map[string]fg.TextureUsage{
	"sampled":       fg.TextureUsageSampled,
	"storage":       fg.TextureUsageStorage,
	"color":         fg.TextureUsageColorAttachment,
	"depth_stencil": fg.TextureUsageDepthStencilAttachment,
	"input":         fg.TextureUsageInputAttachment,
	"copy_src":      fg.TextureUsageCopySrc,
	"copy_dst":      fg.TextureUsageCopyDst,
}

var loadOps = map[string]fg.LoadOp{
	"clear":     fg.LoadOpClear,
	"load":      fg.LoadOpLoad,
	"dont_care": fg.LoadOpDontCare,
}

var storeOps = map[string]fg.StoreOp{
	"store":   fg.StoreOpStore,
	"discard": fg.StoreOpDiscard,
}

var (
	bufferReadModes   = map[string]bool{"vertex": true, "index": true, "indirect": true, "uniform": true, "storage": true, "transfer": true}
	bufferWriteModes  = map[string]bool{"storage": true, "transfer": true}
	textureReadModes  = map[string]bool{"sampled": true, "storage": true, "blit": true, "input": true, "depth": true}
	textureWriteModes = map[string]bool{"color": true, "depth": true, "storage": true, "blit": true}
)
