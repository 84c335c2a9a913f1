package graphdesc

import (
	"fmt"

	fg "github.com/Carmen-Shannon/oxy-graph/engine/renderer/framegraph"
)

// Bindings supplies the runtime objects a description refers to by name.
type Bindings struct {
	// Buffers and Textures hold the physical objects of external resources.
	Buffers  map[string]fg.Buffer
	Textures map[string]fg.Texture
	// Passes holds pass bodies. A pass without a body records only its barriers and scope.
	Passes map[string]fg.ExecuteFunc
	// Params holds the parameter value each pass is added with.
	Params map[string]any
}

// Apply declares the description's resources and passes on b and sets its output.
//
// Parameters:
//   - b: the builder to declare on, usually freshly Reset
//   - bind: the external objects and pass bodies referenced by name
//
// Returns:
//   - error: an error wrapping ErrInvalid if an external is unbound, an access names an
//     undeclared resource, or the output cannot be set
func (d *Description) Apply(b fg.Builder, bind Bindings) error {
	buffers := make(map[string]fg.BufferHandle, len(d.Buffers))
	textures := make(map[string]fg.TextureHandle, len(d.Textures))

	for _, s := range d.Buffers {
		var h fg.BufferHandle
		if s.External {
			buf, ok := bind.Buffers[s.Name]
			if !ok {
				return fmt.Errorf("%w: %s: external buffer %q is not bound", ErrInvalid, d.Filename, s.Name)
			}
			h = b.RegisterExternalBuffer(s.Name, buf)
		} else {
			h = b.CreateBuffer(s.Desc, s.Name)
		}
		if !h.Valid() {
			return fmt.Errorf("%w: %s: buffer %q conflicts with an existing resource", ErrInvalid, d.Filename, s.Name)
		}
		buffers[s.Name] = h
	}
	for _, s := range d.Textures {
		var h fg.TextureHandle
		if s.External {
			tex, ok := bind.Textures[s.Name]
			if !ok {
				return fmt.Errorf("%w: %s: external texture %q is not bound", ErrInvalid, d.Filename, s.Name)
			}
			h = b.RegisterExternalTexture(s.Name, tex)
		} else {
			h = b.CreateTexture(s.Desc, s.Name)
		}
		if !h.Valid() {
			return fmt.Errorf("%w: %s: texture %q conflicts with an existing resource", ErrInvalid, d.Filename, s.Name)
		}
		textures[s.Name] = h
	}

	for _, ps := range d.Passes {
		p := b.AddPass(ps.Name, ps.Flags, bind.Params[ps.Name], bind.Passes[ps.Name])
		for _, a := range ps.Accesses {
			var err error
			switch a.Kind {
			case fg.ResourceKindBuffer:
				h, ok := buffers[a.Resource]
				if !ok {
					return fmt.Errorf("%w: %s: pass %q: unknown buffer %q", ErrInvalid, d.Filename, ps.Name, a.Resource)
				}
				err = declareBuffer(p, h, a)
			case fg.ResourceKindTexture:
				h, ok := textures[a.Resource]
				if !ok {
					return fmt.Errorf("%w: %s: pass %q: unknown texture %q", ErrInvalid, d.Filename, ps.Name, a.Resource)
				}
				err = declareTexture(p, h, a)
			}
			if err != nil {
				return fmt.Errorf("%w: %s: pass %q: %w", ErrInvalid, d.Filename, ps.Name, err)
			}
		}
	}

	if d.Output == "" {
		return nil
	}
	if h, ok := textures[d.Output]; ok {
		return b.SetOutput(h)
	}
	if h, ok := buffers[d.Output]; ok {
		return b.SetOutput(h)
	}
	return fmt.Errorf("%w: %s: output %q is not declared", ErrInvalid, d.Filename, d.Output)
}

func declareBuffer(p fg.Pass, h fg.BufferHandle, a AccessSpec) error {
	switch {
	case !a.Write && a.As == "vertex":
		p.ReadVertexBuffer(h)
	case !a.Write && a.As == "index":
		p.ReadIndexBuffer(h)
	case !a.Write && a.As == "indirect":
		p.ReadIndirectBuffer(h)
	case !a.Write && a.As == "uniform":
		p.ReadUniformBuffer(h)
	case !a.Write && a.As == "storage":
		p.ReadStorageBuffer(h)
	case !a.Write && a.As == "transfer":
		p.ReadTransferBuffer(h)
	case a.Write && a.As == "storage":
		p.WriteStorageBuffer(h)
	case a.Write && a.As == "transfer":
		p.WriteTransferBuffer(h)
	default:
		return fmt.Errorf("unsupported buffer access %q", a.As)
	}
	return nil
}

func declareTexture(p fg.Pass, h fg.TextureHandle, a AccessSpec) error {
	switch {
	case !a.Write && a.As == "sampled":
		p.ReadSampledTexture(h)
	case !a.Write && a.As == "storage":
		p.ReadStorageImage(h)
	case !a.Write && a.As == "blit":
		p.ReadBlitSource(h)
	case !a.Write && a.As == "input":
		p.AddInputAttachment(h)
	case !a.Write && a.As == "depth":
		p.ReadDepthAttachment(h)
	case a.Write && a.As == "color":
		p.AddColorAttachment(h, a.Ops)
	case a.Write && a.As == "depth":
		p.WriteDepthAttachment(h, a.Ops)
	case a.Write && a.As == "storage":
		p.WriteStorageImage(h)
	case a.Write && a.As == "blit":
		p.WriteBlitDestination(h)
	default:
		return fmt.Errorf("unsupported texture access %q", a.As)
	}
	return nil
}
