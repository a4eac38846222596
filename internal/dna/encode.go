package dna

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"cogentcore.org/core/math32"
)

// Container layout: 4-byte magic, u16 version, then the seven sections in
// fixed order, each a tag byte plus a u32 payload length. Length prefixes
// let a reader skip to any section without decoding the ones before it.
var magic = [4]byte{'R', 'D', 'N', 'A'}

const (
	sectionJoints byte = iota + 1
	sectionMeshes
	sectionWeights
	sectionShapes
	sectionMaps
	sectionGraph
	sectionMetadata
)

var sectionOrder = []byte{
	sectionJoints,
	sectionMeshes,
	sectionWeights,
	sectionShapes,
	sectionMaps,
	sectionGraph,
	sectionMetadata,
}

// Encode serializes the document to its binary container. The output is
// the exact inverse of Decode: re-encoding a decoded document reproduces
// the input bytes.
func Encode(d *Document) ([]byte, error) {
	sections := map[byte]func(*payload) error{
		sectionJoints:   d.encodeJoints,
		sectionMeshes:   d.encodeMeshes,
		sectionWeights:  d.encodeWeights,
		sectionShapes:   d.encodeShapes,
		sectionMaps:     d.encodeMaps,
		sectionGraph:    d.encodeGraph,
		sectionMetadata: d.encodeMetadata,
	}

	out := make([]byte, 0, 4096)
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint16(out, d.version)
	for _, tag := range sectionOrder {
		var p payload
		if err := sections[tag](&p); err != nil {
			return nil, err
		}
		out = append(out, tag)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(p.b)))
		out = append(out, p.b...)
	}
	return out, nil
}

// WriteFile encodes the document and writes it to path.
func WriteFile(path string, d *Document) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("dna: write %s: %w", path, err)
	}
	return nil
}

func (d *Document) encodeJoints(p *payload) error {
	if err := p.count16("joints", len(d.joints)); err != nil {
		return err
	}
	for _, j := range d.joints {
		if err := p.str(j.Name); err != nil {
			return err
		}
		p.i32(int32(j.Parent))
		p.vec3(j.Translation)
		p.vec3(j.Rotation)
		p.vec3(j.Scale)
	}
	return nil
}

func (d *Document) encodeMeshes(p *payload) error {
	if err := p.count16("meshes", len(d.meshes)); err != nil {
		return err
	}
	for i := range d.meshes {
		m := &d.meshes[i]
		if err := p.str(m.Name); err != nil {
			return err
		}
		p.u32(uint32(len(m.Positions)))
		for _, v := range m.Positions {
			p.vec3(v)
		}
		p.bool(m.UVs != nil)
		for _, uv := range m.UVs {
			p.vec2(uv)
		}
		p.u32(uint32(len(m.Triangles)))
		for _, tri := range m.Triangles {
			p.u32(tri[0])
			p.u32(tri[1])
			p.u32(tri[2])
		}
	}
	return nil
}

func (d *Document) encodeWeights(p *payload) error {
	if err := p.count16("meshes", len(d.meshes)); err != nil {
		return err
	}
	for i := range d.meshes {
		m := &d.meshes[i]
		p.bool(m.Weights != nil)
		if m.Weights == nil {
			continue
		}
		p.u32(uint32(len(m.Weights)))
		for vi, weights := range m.Weights {
			if len(weights) > math.MaxUint8 {
				return fmt.Errorf("dna: lod %d vertex %d has %d influences (limit %d)", i, vi, len(weights), math.MaxUint8)
			}
			p.u8(uint8(len(weights)))
			for _, w := range weights {
				p.u16(w.Joint)
				p.f32(w.Weight)
			}
		}
	}
	return nil
}

func (d *Document) encodeShapes(p *payload) error {
	if err := p.count16("blend shapes", len(d.shapes)); err != nil {
		return err
	}
	for _, s := range d.shapes {
		if err := p.str(s.Name); err != nil {
			return err
		}
		p.u16(s.LOD)
		p.u32(uint32(len(s.Deltas)))
		for _, delta := range s.Deltas {
			p.u32(delta.Vertex)
			p.vec3(delta.Delta)
		}
	}
	return nil
}

func (d *Document) encodeMaps(p *payload) error {
	if err := p.count16("animated maps", len(d.maps)); err != nil {
		return err
	}
	for _, m := range d.maps {
		if err := p.str(m.Name); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) encodeGraph(p *payload) error {
	g := &d.graph
	if err := p.count16("controls", len(g.Controls)); err != nil {
		return err
	}
	for _, c := range g.Controls {
		if err := p.str(c.Name); err != nil {
			return err
		}
	}

	if err := p.count16("expressions", len(g.Expressions)); err != nil {
		return err
	}
	for _, e := range g.Expressions {
		if err := p.str(e.Name); err != nil {
			return err
		}
		if len(e.Inputs) > math.MaxUint8 {
			return fmt.Errorf("dna: expression %q has %d inputs (limit %d)", e.Name, len(e.Inputs), math.MaxUint8)
		}
		p.u8(uint8(len(e.Inputs)))
		for _, in := range e.Inputs {
			p.u16(in)
		}
	}

	if err := p.count16("solvers", len(g.Solvers)); err != nil {
		return err
	}
	for _, s := range g.Solvers {
		if err := p.str(s.Name); err != nil {
			return err
		}
		p.u8(uint8(s.Mode))
		p.u8(uint8(s.Distance))
		p.u8(uint8(s.Kernel))
		p.u8(uint8(s.Normalize))
		p.u8(uint8(s.TwistAxis))
		p.bool(s.AutomaticRadius)
		p.f32(s.Radius)
		if len(s.Inputs) > math.MaxUint8 {
			return fmt.Errorf("dna: solver %q has %d inputs (limit %d)", s.Name, len(s.Inputs), math.MaxUint8)
		}
		p.u8(uint8(len(s.Inputs)))
		for _, in := range s.Inputs {
			p.u16(in)
		}
		if err := p.count16("poses", len(s.Poses)); err != nil {
			return err
		}
		for _, pose := range s.Poses {
			if err := p.str(pose.Name); err != nil {
				return err
			}
			for _, v := range pose.Input {
				p.f32(v)
			}
			if err := p.count16("pose joints", len(pose.Joints)); err != nil {
				return err
			}
			for _, jd := range pose.Joints {
				p.u16(jd.Joint)
				for _, v := range jd.Delta {
					p.f32(v)
				}
			}
			if err := p.count16("pose shapes", len(pose.Shapes)); err != nil {
				return err
			}
			for _, sw := range pose.Shapes {
				p.u16(sw.Shape)
				p.f32(sw.Weight)
			}
			if err := p.count16("pose maps", len(pose.Maps)); err != nil {
				return err
			}
			for _, mw := range pose.Maps {
				p.u16(mw.Map)
				p.f32(mw.Weight)
			}
		}
	}

	p.u32(uint32(len(g.JointBehaviors)))
	for _, b := range g.JointBehaviors {
		p.u16(b.Joint)
		p.u16(b.Channel)
		if err := p.count16("behavior keys", len(b.Keys)); err != nil {
			return err
		}
		for _, k := range b.Keys {
			p.f32(k.In)
			for _, v := range k.Out {
				p.f32(v)
			}
		}
	}
	p.u32(uint32(len(g.ShapeBehaviors)))
	for _, b := range g.ShapeBehaviors {
		p.u16(b.Shape)
		p.u16(b.Channel)
		if err := p.encodeScalarKeys(b.Keys); err != nil {
			return err
		}
	}
	p.u32(uint32(len(g.MapBehaviors)))
	for _, b := range g.MapBehaviors {
		p.u16(b.Map)
		p.u16(b.Channel)
		if err := p.encodeScalarKeys(b.Keys); err != nil {
			return err
		}
	}
	return nil
}

func (p *payload) encodeScalarKeys(keys []ScalarKey) error {
	if err := p.count16("behavior keys", len(keys)); err != nil {
		return err
	}
	for _, k := range keys {
		p.f32(k.In)
		p.f32(k.Out)
	}
	return nil
}

func (d *Document) encodeMetadata(p *payload) error {
	if err := p.str(d.meta.Name); err != nil {
		return err
	}
	if err := p.str(d.meta.ID); err != nil {
		return err
	}
	p.u32(uint32(len(d.meta.LowConfidence)))
	for _, v := range d.meta.LowConfidence {
		p.u16(v.LOD)
		p.u32(v.Vertex)
	}
	return nil
}

// payload accumulates one section body. Appends cannot fail; only size
// guards return errors.
type payload struct {
	b []byte
}

func (p *payload) u8(v uint8)  { p.b = append(p.b, v) }
func (p *payload) u16(v uint16) {
	p.b = binary.LittleEndian.AppendUint16(p.b, v)
}
func (p *payload) u32(v uint32) {
	p.b = binary.LittleEndian.AppendUint32(p.b, v)
}
func (p *payload) i32(v int32)   { p.u32(uint32(v)) }
func (p *payload) f32(v float32) { p.u32(math.Float32bits(v)) }

func (p *payload) bool(v bool) {
	if v {
		p.u8(1)
	} else {
		p.u8(0)
	}
}

func (p *payload) vec2(v math32.Vector2) {
	p.f32(v.X)
	p.f32(v.Y)
}

func (p *payload) vec3(v math32.Vector3) {
	p.f32(v.X)
	p.f32(v.Y)
	p.f32(v.Z)
}

func (p *payload) str(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("dna: string of %d bytes exceeds container limit", len(s))
	}
	p.u16(uint16(len(s)))
	p.b = append(p.b, s...)
	return nil
}

func (p *payload) count16(what string, n int) error {
	if n > math.MaxUint16 {
		return fmt.Errorf("dna: %d %s exceed container limit %d", n, what, math.MaxUint16)
	}
	p.u16(uint16(n))
	return nil
}
