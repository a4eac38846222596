package dna

import (
	"fmt"

	"cogentcore.org/core/math32"
	"github.com/google/uuid"
)

// FormatVersion is the container version this package writes and the newest
// it will read.
const FormatVersion = 2

// WeightTolerance bounds how far a vertex's skin weights may drift from
// summing to one before validation rejects the document.
const WeightTolerance = 1e-5

// Joint is one node of the bind-pose hierarchy. The transform is local to
// the parent joint: translation in centimeters, rotation as XYZ Euler
// angles in degrees.
type Joint struct {
	Name        string
	Parent      int // -1 for a root
	Translation math32.Vector3
	Rotation    math32.Vector3
	Scale       math32.Vector3
}

// JointWeight binds a fraction of one vertex to a joint.
type JointWeight struct {
	Joint  uint16
	Weight float32
}

// Mesh is the geometry for one level of detail. Weights are indexed by
// vertex; UVs and Triangles describe the chart the correspondence mapper
// searches and may be empty for documents that never leave Calibrate mode.
type Mesh struct {
	Name      string
	Positions []math32.Vector3
	UVs       []math32.Vector2
	Triangles [][3]uint32
	Weights   [][]JointWeight
}

// VertexCount reports the number of vertices in the mesh.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// ShapeDelta displaces one vertex of a blend shape from the bind pose.
type ShapeDelta struct {
	Vertex uint32
	Delta  math32.Vector3
}

// BlendShape is a named sparse morph target scoped to one LOD.
type BlendShape struct {
	Name   string
	LOD    uint16
	Deltas []ShapeDelta
}

// AnimatedMap names a texture-mask weight output. The weight itself is
// produced by the behavior graph each evaluation.
type AnimatedMap struct {
	Name string
}

// LowConfidenceVertex identifies a vertex whose last resampling fell
// outside the reference UV footprint. Attached to document metadata by
// Overwrite so callers can surface the affected region.
type LowConfidenceVertex struct {
	LOD    uint16
	Vertex uint32
}

// Metadata carries document identity and diagnostics that persist across
// load and save.
type Metadata struct {
	Name          string
	ID            string // UUID assigned when the document is first built
	LowConfidence []LowConfidenceVertex
}

// Document is the immutable in-memory model of one rig. Accessors return
// internal slices for efficiency; callers must not modify them. New
// versions are produced through Edit, never in place.
type Document struct {
	version uint16
	meta    Metadata
	joints  []Joint
	meshes  []Mesh
	shapes  []BlendShape
	maps    []AnimatedMap
	graph   BehaviorGraph

	jointIndex map[string]int
}

// Version reports the container version the document was read with, or
// FormatVersion for freshly built documents.
func (d *Document) Version() uint16 { return d.version }

// Meta returns the document metadata.
func (d *Document) Meta() Metadata { return d.meta }

// Joints returns the bind-pose hierarchy in topological order.
func (d *Document) Joints() []Joint { return d.joints }

// JointCount reports the number of joints.
func (d *Document) JointCount() int { return len(d.joints) }

// JointIndex resolves a joint name to its index.
func (d *Document) JointIndex(name string) (int, bool) {
	i, ok := d.jointIndex[name]
	return i, ok
}

// MeshCount reports the number of levels of detail.
func (d *Document) MeshCount() int { return len(d.meshes) }

// Mesh returns the geometry for one level of detail.
func (d *Document) Mesh(lod int) (*Mesh, error) {
	if lod < 0 || lod >= len(d.meshes) {
		return nil, fmt.Errorf("dna: no mesh for lod %d (document has %d)", lod, len(d.meshes))
	}
	return &d.meshes[lod], nil
}

// Meshes returns all levels of detail, finest first.
func (d *Document) Meshes() []Mesh { return d.meshes }

// BlendShapes returns every blend shape across all LODs.
func (d *Document) BlendShapes() []BlendShape { return d.shapes }

// BlendShape returns one blend shape by table index.
func (d *Document) BlendShape(i int) (*BlendShape, error) {
	if i < 0 || i >= len(d.shapes) {
		return nil, fmt.Errorf("dna: no blend shape %d (document has %d)", i, len(d.shapes))
	}
	return &d.shapes[i], nil
}

// AnimatedMaps returns the texture-mask registry.
func (d *Document) AnimatedMaps() []AnimatedMap { return d.maps }

// Graph returns the behavior graph. Read-only.
func (d *Document) Graph() *BehaviorGraph { return &d.graph }

// Edit returns a Builder seeded with a deep copy of the document, keeping
// its identity. The calibrate package is the intended caller; the source
// document is never touched.
func (d *Document) Edit() *Builder {
	b := &Builder{doc: Document{
		version: d.version,
		meta:    d.meta,
		joints:  append([]Joint(nil), d.joints...),
		meshes:  make([]Mesh, len(d.meshes)),
		shapes:  make([]BlendShape, len(d.shapes)),
		maps:    append([]AnimatedMap(nil), d.maps...),
		graph:   d.graph.clone(),
	}}
	b.doc.meta.LowConfidence = append([]LowConfidenceVertex(nil), d.meta.LowConfidence...)
	for i := range d.meshes {
		b.doc.meshes[i] = d.meshes[i].clone()
	}
	for i := range d.shapes {
		b.doc.shapes[i] = d.shapes[i].clone()
	}
	return b
}

func (m Mesh) clone() Mesh {
	out := Mesh{
		Name:      m.Name,
		Positions: append([]math32.Vector3(nil), m.Positions...),
		UVs:       append([]math32.Vector2(nil), m.UVs...),
		Triangles: append([][3]uint32(nil), m.Triangles...),
	}
	if m.Weights != nil {
		out.Weights = make([][]JointWeight, len(m.Weights))
		for i, w := range m.Weights {
			out.Weights[i] = append([]JointWeight(nil), w...)
		}
	}
	return out
}

func (s BlendShape) clone() BlendShape {
	return BlendShape{
		Name:   s.Name,
		LOD:    s.LOD,
		Deltas: append([]ShapeDelta(nil), s.Deltas...),
	}
}

// Builder assembles a Document. Obtain one from NewBuilder or
// Document.Edit; the zero value is not usable. Build validates and hands
// over the assembled document, after which the builder must be discarded.
type Builder struct {
	doc   Document
	built bool
}

// NewBuilder starts a fresh document with a new provenance ID.
func NewBuilder(name string) *Builder {
	return &Builder{doc: Document{
		version: FormatVersion,
		meta:    Metadata{Name: name, ID: uuid.NewString()},
	}}
}

// SetJoints replaces the joint hierarchy.
func (b *Builder) SetJoints(joints []Joint) *Builder {
	b.doc.joints = joints
	return b
}

// SetMeshes replaces all levels of detail.
func (b *Builder) SetMeshes(meshes []Mesh) *Builder {
	b.doc.meshes = meshes
	return b
}

// AddMesh appends one level of detail.
func (b *Builder) AddMesh(m Mesh) *Builder {
	b.doc.meshes = append(b.doc.meshes, m)
	return b
}

// SetBlendShapes replaces the blend-shape table.
func (b *Builder) SetBlendShapes(shapes []BlendShape) *Builder {
	b.doc.shapes = shapes
	return b
}

// SetAnimatedMaps replaces the texture-mask registry.
func (b *Builder) SetAnimatedMaps(maps []AnimatedMap) *Builder {
	b.doc.maps = maps
	return b
}

// SetGraph replaces the behavior graph.
func (b *Builder) SetGraph(g BehaviorGraph) *Builder {
	b.doc.graph = g
	return b
}

// SetLowConfidence records the vertices the last resampling could not
// place inside the reference UV footprint.
func (b *Builder) SetLowConfidence(verts []LowConfidenceVertex) *Builder {
	b.doc.meta.LowConfidence = verts
	return b
}

// Build validates the assembled document and returns it. The builder is
// spent afterwards.
func (b *Builder) Build() (*Document, error) {
	if b.built {
		return nil, fmt.Errorf("dna: builder already consumed")
	}
	doc := b.doc
	doc.jointIndex = make(map[string]int, len(doc.joints))
	for i, j := range doc.joints {
		doc.jointIndex[j.Name] = i
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	b.built = true
	b.doc = Document{}
	return &doc, nil
}
