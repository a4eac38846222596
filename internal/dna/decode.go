package dna

import (
	"fmt"
	"math"
	"os"

	"cogentcore.org/core/math32"
)

// Decode parses a binary container and validates the result. The returned
// document satisfies every structural invariant, or a typed error from this
// package describes the first violation and no document is returned.
func Decode(data []byte) (*Document, error) {
	doc, err := decodeContainer(data)
	if err != nil {
		return nil, err
	}
	doc.jointIndex = make(map[string]int, len(doc.joints))
	for i, j := range doc.joints {
		doc.jointIndex[j.Name] = i
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadFile loads and decodes the container at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dna: read %s: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// DecodeJoints reads only the joint hierarchy, skipping every other
// section via the length prefixes.
func DecodeJoints(data []byte) ([]Joint, error) {
	payload, base, err := findSection(data, sectionJoints)
	if err != nil {
		return nil, err
	}
	r := &reader{data: payload, base: base}
	joints := r.joints()
	r.expectDrained()
	if r.err != nil {
		return nil, r.err
	}
	return joints, nil
}

// DecodeMetadata reads only the metadata section. Used where document
// identity is needed without the cost of a full parse.
func DecodeMetadata(data []byte) (Metadata, error) {
	payload, base, err := findSection(data, sectionMetadata)
	if err != nil {
		return Metadata{}, err
	}
	r := &reader{data: payload, base: base}
	meta := r.metadata()
	r.expectDrained()
	if r.err != nil {
		return Metadata{}, r.err
	}
	return meta, nil
}

func decodeHeader(data []byte) error {
	if len(data) < 6 {
		return &FormatError{Offset: 0, Reason: "short header"}
	}
	if [4]byte(data[:4]) != magic {
		return &FormatError{Offset: 0, Reason: "bad magic"}
	}
	if v := uint16(data[4]) | uint16(data[5])<<8; v != FormatVersion {
		return &UnsupportedVersionError{Version: v}
	}
	return nil
}

// findSection walks the section table and returns the payload for tag plus
// its absolute offset.
func findSection(data []byte, tag byte) ([]byte, int64, error) {
	if err := decodeHeader(data); err != nil {
		return nil, 0, err
	}
	off := 6
	for _, want := range sectionOrder {
		if off+5 > len(data) {
			return nil, 0, &FormatError{Offset: int64(off), Reason: "truncated section table"}
		}
		got := data[off]
		if got != want {
			return nil, 0, &FormatError{Offset: int64(off), Reason: fmt.Sprintf("expected section %d, found %d", want, got)}
		}
		length := int(uint32(data[off+1]) | uint32(data[off+2])<<8 | uint32(data[off+3])<<16 | uint32(data[off+4])<<24)
		body := off + 5
		if body+length > len(data) {
			return nil, 0, &FormatError{Offset: int64(off + 1), Reason: "section length exceeds data"}
		}
		if got == tag {
			return data[body : body+length], int64(body), nil
		}
		off = body + length
	}
	return nil, 0, &FormatError{Offset: int64(off), Reason: fmt.Sprintf("section %d missing", tag)}
}

func decodeContainer(data []byte) (*Document, error) {
	if err := decodeHeader(data); err != nil {
		return nil, err
	}
	doc := &Document{version: FormatVersion}

	off := 6
	for _, want := range sectionOrder {
		if off+5 > len(data) {
			return nil, &FormatError{Offset: int64(off), Reason: "truncated section table"}
		}
		if got := data[off]; got != want {
			return nil, &FormatError{Offset: int64(off), Reason: fmt.Sprintf("expected section %d, found %d", want, got)}
		}
		length := int(uint32(data[off+1]) | uint32(data[off+2])<<8 | uint32(data[off+3])<<16 | uint32(data[off+4])<<24)
		body := off + 5
		if body+length > len(data) {
			return nil, &FormatError{Offset: int64(off + 1), Reason: "section length exceeds data"}
		}
		r := &reader{data: data[body : body+length], base: int64(body)}
		switch want {
		case sectionJoints:
			doc.joints = r.joints()
		case sectionMeshes:
			doc.meshes = r.meshes()
		case sectionWeights:
			r.weights(doc.meshes)
		case sectionShapes:
			doc.shapes = r.shapes()
		case sectionMaps:
			doc.maps = r.animatedMaps()
		case sectionGraph:
			doc.graph = r.graph()
		case sectionMetadata:
			doc.meta = r.metadata()
		}
		r.expectDrained()
		if r.err != nil {
			return nil, r.err
		}
		off = body + length
	}
	if off != len(data) {
		return nil, &FormatError{Offset: int64(off), Reason: "trailing bytes after last section"}
	}
	return doc, nil
}

// reader decodes one section payload with a sticky error; after a failure
// every accessor returns zero values and the first error is kept.
type reader struct {
	data []byte
	base int64
	off  int
	err  error
}

func (r *reader) fail(reason string) {
	if r.err == nil {
		r.err = &FormatError{Offset: r.base + int64(r.off), Reason: reason}
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail("unexpected end of section")
		return false
	}
	return true
}

func (r *reader) expectDrained() {
	if r.err == nil && r.off != len(r.data) {
		r.fail("trailing bytes in section")
	}
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := uint16(r.data[r.off]) | uint16(r.data[r.off+1])<<8
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := uint32(r.data[r.off]) | uint32(r.data[r.off+1])<<8 | uint32(r.data[r.off+2])<<16 | uint32(r.data[r.off+3])<<24
	r.off += 4
	return v
}

func (r *reader) i32() int32   { return int32(r.u32()) }
func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) bool() bool {
	switch r.u8() {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail("invalid boolean")
		return false
	}
}

func (r *reader) str() string {
	n := int(r.u16())
	if !r.need(n) {
		return ""
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

func (r *reader) vec2() math32.Vector2 {
	return math32.Vec2(r.f32(), r.f32())
}

func (r *reader) vec3() math32.Vector3 {
	return math32.Vec3(r.f32(), r.f32(), r.f32())
}

// count reads an element count and rejects counts that could not fit in
// the remaining payload, bounding allocations on corrupt input.
func (r *reader) count(read func() int, minSize int) int {
	n := read()
	if r.err != nil {
		return 0
	}
	if minSize > 0 && n*minSize > len(r.data)-r.off {
		r.fail("element count exceeds section")
		return 0
	}
	return n
}

func (r *reader) count16(minSize int) int {
	return r.count(func() int { return int(r.u16()) }, minSize)
}

func (r *reader) count32(minSize int) int {
	return r.count(func() int { return int(r.u32()) }, minSize)
}

// sliceCap preallocates for a decoded count, keeping zero-length tables
// nil so every decoded document has one canonical in-memory form.
func sliceCap[T any](n int) []T {
	if n <= 0 {
		return nil
	}
	return make([]T, 0, n)
}

func (r *reader) joints() []Joint {
	n := r.count16(2 + 4 + 36)
	joints := sliceCap[Joint](n)
	for i := 0; i < n && r.err == nil; i++ {
		joints = append(joints, Joint{
			Name:        r.str(),
			Parent:      int(r.i32()),
			Translation: r.vec3(),
			Rotation:    r.vec3(),
			Scale:       r.vec3(),
		})
	}
	return joints
}

func (r *reader) meshes() []Mesh {
	n := r.count16(2 + 4 + 1 + 4)
	meshes := sliceCap[Mesh](n)
	for i := 0; i < n && r.err == nil; i++ {
		m := Mesh{Name: r.str()}
		verts := r.count32(12)
		m.Positions = sliceCap[math32.Vector3](verts)
		for v := 0; v < verts && r.err == nil; v++ {
			m.Positions = append(m.Positions, r.vec3())
		}
		if r.bool() {
			m.UVs = make([]math32.Vector2, 0, verts)
			for v := 0; v < verts && r.err == nil; v++ {
				m.UVs = append(m.UVs, r.vec2())
			}
		}
		tris := r.count32(12)
		m.Triangles = sliceCap[[3]uint32](tris)
		for t := 0; t < tris && r.err == nil; t++ {
			m.Triangles = append(m.Triangles, [3]uint32{r.u32(), r.u32(), r.u32()})
		}
		meshes = append(meshes, m)
	}
	return meshes
}

func (r *reader) weights(meshes []Mesh) {
	n := r.count16(1)
	if r.err == nil && n != len(meshes) {
		r.fail(fmt.Sprintf("weight tables for %d meshes, document has %d", n, len(meshes)))
		return
	}
	for i := 0; i < n && r.err == nil; i++ {
		if !r.bool() {
			continue
		}
		verts := r.count32(1)
		if r.err == nil && verts != len(meshes[i].Positions) {
			r.fail(fmt.Sprintf("weights for %d vertices, mesh has %d", verts, len(meshes[i].Positions)))
			return
		}
		table := make([][]JointWeight, verts)
		for v := 0; v < verts && r.err == nil; v++ {
			influences := int(r.u8())
			entry := sliceCap[JointWeight](influences)
			for k := 0; k < influences && r.err == nil; k++ {
				entry = append(entry, JointWeight{Joint: r.u16(), Weight: r.f32()})
			}
			table[v] = entry
		}
		meshes[i].Weights = table
	}
}

func (r *reader) shapes() []BlendShape {
	n := r.count16(2 + 2 + 4)
	shapes := sliceCap[BlendShape](n)
	for i := 0; i < n && r.err == nil; i++ {
		s := BlendShape{Name: r.str(), LOD: r.u16()}
		deltas := r.count32(16)
		s.Deltas = sliceCap[ShapeDelta](deltas)
		for k := 0; k < deltas && r.err == nil; k++ {
			s.Deltas = append(s.Deltas, ShapeDelta{Vertex: r.u32(), Delta: r.vec3()})
		}
		shapes = append(shapes, s)
	}
	return shapes
}

func (r *reader) animatedMaps() []AnimatedMap {
	n := r.count16(2)
	maps := sliceCap[AnimatedMap](n)
	for i := 0; i < n && r.err == nil; i++ {
		maps = append(maps, AnimatedMap{Name: r.str()})
	}
	return maps
}

func (r *reader) graph() BehaviorGraph {
	var g BehaviorGraph

	n := r.count16(2)
	g.Controls = sliceCap[Control](n)
	for i := 0; i < n && r.err == nil; i++ {
		g.Controls = append(g.Controls, Control{Name: r.str()})
	}

	n = r.count16(2 + 1)
	g.Expressions = sliceCap[PSDExpression](n)
	for i := 0; i < n && r.err == nil; i++ {
		e := PSDExpression{Name: r.str()}
		inputs := int(r.u8())
		e.Inputs = sliceCap[uint16](inputs)
		for k := 0; k < inputs && r.err == nil; k++ {
			e.Inputs = append(e.Inputs, r.u16())
		}
		g.Expressions = append(g.Expressions, e)
	}

	n = r.count16(2 + 6 + 4 + 1 + 2)
	g.Solvers = sliceCap[RBFSolver](n)
	for i := 0; i < n && r.err == nil; i++ {
		g.Solvers = append(g.Solvers, r.solver())
	}

	n = r.count32(2 + 2 + 2)
	g.JointBehaviors = sliceCap[JointBehavior](n)
	for i := 0; i < n && r.err == nil; i++ {
		b := JointBehavior{Joint: r.u16(), Channel: r.u16()}
		keys := r.count16(40)
		b.Keys = sliceCap[TransformKey](keys)
		for k := 0; k < keys && r.err == nil; k++ {
			b.Keys = append(b.Keys, TransformKey{In: r.f32(), Out: r.jointOutput()})
		}
		g.JointBehaviors = append(g.JointBehaviors, b)
	}

	g.ShapeBehaviors = scalarBehaviorDecode(r, func(target, channel uint16, keys []ScalarKey) ShapeBehavior {
		return ShapeBehavior{Shape: target, Channel: channel, Keys: keys}
	})
	g.MapBehaviors = scalarBehaviorDecode(r, func(target, channel uint16, keys []ScalarKey) MapBehavior {
		return MapBehavior{Map: target, Channel: channel, Keys: keys}
	})
	return g
}

func (r *reader) solver() RBFSolver {
	s := RBFSolver{
		Name:            r.str(),
		Mode:            RBFMode(r.u8()),
		Distance:        RBFDistanceMethod(r.u8()),
		Kernel:          RBFKernel(r.u8()),
		Normalize:       RBFNormalizeMethod(r.u8()),
		TwistAxis:       TwistAxis(r.u8()),
		AutomaticRadius: r.bool(),
		Radius:          r.f32(),
	}
	if _, ok := modeNames[s.Mode]; !ok && r.err == nil {
		r.fail(fmt.Sprintf("unknown solver mode %d", s.Mode))
	}
	if _, ok := distanceNames[s.Distance]; !ok && r.err == nil {
		r.fail(fmt.Sprintf("unknown distance method %d", s.Distance))
	}
	if _, ok := kernelNames[s.Kernel]; !ok && r.err == nil {
		r.fail(fmt.Sprintf("unknown kernel %d", s.Kernel))
	}
	if _, ok := normalizeNames[s.Normalize]; !ok && r.err == nil {
		r.fail(fmt.Sprintf("unknown normalize method %d", s.Normalize))
	}
	if _, ok := twistNames[s.TwistAxis]; !ok && r.err == nil {
		r.fail(fmt.Sprintf("unknown twist axis %d", s.TwistAxis))
	}
	inputs := int(r.u8())
	s.Inputs = sliceCap[uint16](inputs)
	for k := 0; k < inputs && r.err == nil; k++ {
		s.Inputs = append(s.Inputs, r.u16())
	}
	poses := r.count16(2)
	s.Poses = sliceCap[RBFPose](poses)
	for k := 0; k < poses && r.err == nil; k++ {
		pose := RBFPose{Name: r.str()}
		pose.Input = sliceCap[float32](inputs)
		for c := 0; c < inputs && r.err == nil; c++ {
			pose.Input = append(pose.Input, r.f32())
		}
		joints := r.count16(2 + 36)
		pose.Joints = sliceCap[PoseJointDelta](joints)
		for c := 0; c < joints && r.err == nil; c++ {
			pose.Joints = append(pose.Joints, PoseJointDelta{Joint: r.u16(), Delta: r.jointOutput()})
		}
		shapes := r.count16(2 + 4)
		pose.Shapes = sliceCap[PoseShapeWeight](shapes)
		for c := 0; c < shapes && r.err == nil; c++ {
			pose.Shapes = append(pose.Shapes, PoseShapeWeight{Shape: r.u16(), Weight: r.f32()})
		}
		maps := r.count16(2 + 4)
		pose.Maps = sliceCap[PoseMapWeight](maps)
		for c := 0; c < maps && r.err == nil; c++ {
			pose.Maps = append(pose.Maps, PoseMapWeight{Map: r.u16(), Weight: r.f32()})
		}
		s.Poses = append(s.Poses, pose)
	}
	return s
}

func scalarBehaviorDecode[T any](r *reader, build func(target, channel uint16, keys []ScalarKey) T) []T {
	n := r.count32(2 + 2 + 2)
	out := sliceCap[T](n)
	for i := 0; i < n && r.err == nil; i++ {
		target := r.u16()
		channel := r.u16()
		keys := r.count16(8)
		list := sliceCap[ScalarKey](keys)
		for k := 0; k < keys && r.err == nil; k++ {
			list = append(list, ScalarKey{In: r.f32(), Out: r.f32()})
		}
		out = append(out, build(target, channel, list))
	}
	return out
}

func (r *reader) jointOutput() JointOutput {
	var out JointOutput
	for i := range out {
		out[i] = r.f32()
	}
	return out
}

func (r *reader) metadata() Metadata {
	meta := Metadata{Name: r.str(), ID: r.str()}
	n := r.count32(6)
	if n > 0 {
		meta.LowConfidence = make([]LowConfidenceVertex, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			meta.LowConfidence = append(meta.LowConfidence, LowConfidenceVertex{LOD: r.u16(), Vertex: r.u32()})
		}
	}
	return meta
}
