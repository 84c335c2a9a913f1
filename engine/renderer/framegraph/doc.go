// Package framegraph schedules the GPU work of a frame from declarations.
//
// Rendering code declares logical buffers and textures on a Builder, adds passes that read
// and write them, and designates one resource as the frame's output. Compile walks back from
// the output's writers to order the passes producers-first, binds every logical resource to a
// physical object (external resources as given, the rest from a name-keyed ResourcePool) and
// synthesizes the barriers needed between accesses. Execute replays the compiled list into a
// CommandContext once per frame.
//
// A minimal graph:
//
//	b := framegraph.NewBuilder(device, cmd, framegraph.Extent{Width: 1280, Height: 720})
//	data := b.CreateBuffer(framegraph.BufferDesc{Size: 4096}, "particles")
//	out := b.RegisterExternalTexture("backbuffer", swapchain)
//	b.AddPass("simulate", framegraph.PassCompute, nil, simulate).WriteStorageBuffer(data)
//	b.AddPass("draw", framegraph.PassRaster, nil, draw).
//		ReadStorageBuffer(data).
//		AddColorAttachment(out, framegraph.ClearStore)
//	_ = b.SetOutput(out)
//	if err := b.Compile(); err != nil {
//		return err
//	}
//	return b.Execute()
//
// The package has no GPU dependency; engine/renderer implements Device and CommandContext on
// WebGPU and fgtest provides recording fakes.
package framegraph
