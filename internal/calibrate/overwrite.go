package calibrate

import (
	"context"
	"fmt"
	"sort"

	"cogentcore.org/core/math32"

	"rigdna/internal/dna"
	"rigdna/internal/snapshot"
	"rigdna/internal/uvmap"
)

// Report summarizes one Overwrite run for logs and command output.
type Report struct {
	// LowConfidence lists the capture vertices whose correspondence
	// lookup landed outside the reference chart. The same list is stamped
	// into the produced document's metadata.
	LowConfidence []dna.LowConfidenceVertex
	// RelocatedJoints counts joints moved through their UV anchors.
	// Joints with no skin influence on the finest mesh keep their stored
	// rest transform.
	RelocatedJoints int
}

// Overwrite rebuilds a document around a capture whose topology no longer
// matches: the produced document carries the capture's vertices, UVs, and
// triangulation, with skin weights and blend-shape deltas pulled from the
// reference mesh through a UV correspondence and joints relocated by
// their anchors' surface displacement. The result is approximate; capture
// vertices the correspondence could not place inside the reference chart
// are flagged in the report and in the document metadata. A tolerance at
// or below zero selects uvmap.DefaultTolerance.
//
// Fails with *uvmap.MappingError when either side is missing the UV data
// the correspondence needs.
func Overwrite(ctx context.Context, doc *dna.Document, snap *snapshot.Snapshot, tolerance float32) (*dna.Document, *Report, error) {
	if len(snap.LODs) != doc.MeshCount() {
		return nil, nil, &uvmap.MappingError{
			Mesh:   doc.Meta().Name,
			Reason: fmt.Sprintf("capture has %d lods, document has %d", len(snap.LODs), doc.MeshCount()),
		}
	}

	rep := &Report{}
	meshes := make([]dna.Mesh, doc.MeshCount())
	mappers := make([]*uvmap.Mapper, doc.MeshCount())
	mappings := make([][]uvmap.Mapping, doc.MeshCount())

	for i := range meshes {
		ref, err := doc.Mesh(i)
		if err != nil {
			return nil, nil, err
		}
		lod := &snap.LODs[i]
		if len(lod.UVs) == 0 {
			return nil, nil, &uvmap.MappingError{Mesh: ref.Name, Reason: "capture has no texture coordinates"}
		}
		m, err := uvmap.New(ref, tolerance)
		if err != nil {
			return nil, nil, err
		}
		mp, err := m.MapAll(ctx, lod.UVs)
		if err != nil {
			return nil, nil, err
		}
		mappers[i] = m
		mappings[i] = mp
		meshes[i] = resampleMesh(ref, lod, m, mp)
		for v := range mp {
			if mp[v].LowConfidence {
				rep.LowConfidence = append(rep.LowConfidence, dna.LowConfidenceVertex{
					LOD:    uint16(i),
					Vertex: uint32(v),
				})
			}
		}
	}

	joints, err := relocateJoints(doc, &meshes[0], tolerance, rep)
	if err != nil {
		return nil, nil, err
	}

	out, err := doc.Edit().
		SetJoints(joints).
		SetMeshes(meshes).
		SetBlendShapes(resampleShapes(doc, mappers, mappings)).
		SetLowConfidence(rep.LowConfidence).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return out, rep, nil
}

// resampleMesh builds one level of detail on the capture's topology. The
// capture supplies positions, UVs, and triangles; skin weights are
// blended from the reference vertices under each correspondence.
func resampleMesh(ref *dna.Mesh, lod *snapshot.LOD, m *uvmap.Mapper, mp []uvmap.Mapping) dna.Mesh {
	out := dna.Mesh{
		Name:      ref.Name,
		Positions: append([]math32.Vector3(nil), lod.Positions...),
		UVs:       append([]math32.Vector2(nil), lod.UVs...),
		Triangles: append([][3]uint32(nil), lod.Triangles...),
	}
	if ref.Weights == nil {
		return out
	}
	out.Weights = make([][]dna.JointWeight, len(mp))
	for v := range mp {
		out.Weights[v] = blendWeights(ref, m, mp[v])
	}
	return out
}

// blendWeights interpolates the three corner vertices' weight lists at
// one correspondence, renormalized to sum to one. Corner contributions
// accumulate in sorted joint order so the result is deterministic.
func blendWeights(ref *dna.Mesh, m *uvmap.Mapper, mp uvmap.Mapping) []dna.JointWeight {
	corners := m.Corners(mp)
	bary := [3]float32{mp.Weights.X, mp.Weights.Y, mp.Weights.Z}

	var pairs []dna.JointWeight
	for c := range corners {
		if bary[c] == 0 {
			continue
		}
		for _, jw := range ref.Weights[corners[c]] {
			pairs = append(pairs, dna.JointWeight{Joint: jw.Joint, Weight: bary[c] * jw.Weight})
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Joint < pairs[j].Joint })

	out := pairs[:0]
	var sum float32
	for _, p := range pairs {
		if p.Weight <= 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Joint == p.Joint {
			out[n-1].Weight += p.Weight
		} else {
			out = append(out, p)
		}
		sum += p.Weight
	}
	if sum > 0 {
		inv := 1 / sum
		for i := range out {
			out[i].Weight *= inv
		}
	}
	return out
}

// resampleShapes rebuilds every blend shape on its level of detail's new
// topology. Each capture vertex samples the reference delta field, zero
// where the sparse table has no entry; resampled displacements below the
// tolerance are dropped to keep the table sparse.
func resampleShapes(doc *dna.Document, mappers []*uvmap.Mapper, mappings [][]uvmap.Mapping) []dna.BlendShape {
	src := doc.BlendShapes()
	out := make([]dna.BlendShape, len(src))
	for i, s := range src {
		m := mappers[s.LOD]
		mp := mappings[s.LOD]
		sparse := make(map[uint32]math32.Vector3, len(s.Deltas))
		for _, d := range s.Deltas {
			sparse[d.Vertex] = d.Delta
		}
		deltas := make([]dna.ShapeDelta, 0, len(s.Deltas))
		for v := range mp {
			corners := m.Corners(mp[v])
			bary := [3]float32{mp[v].Weights.X, mp[v].Weights.Y, mp[v].Weights.Z}
			var delta math32.Vector3
			for c := range corners {
				if d, ok := sparse[corners[c]]; ok {
					delta = delta.Add(d.MulScalar(bary[c]))
				}
			}
			if delta.Length() > ShapeDeltaTolerance {
				deltas = append(deltas, dna.ShapeDelta{Vertex: uint32(v), Delta: delta})
			}
		}
		out[i] = dna.BlendShape{Name: s.Name, LOD: s.LOD, Deltas: deltas}
	}
	return out
}

// relocateJoints moves each skinned joint by the displacement of its UV
// anchor between the reference surface and the capture surface, then
// re-derives parent-local translations down the hierarchy. Rotation and
// scale carry over from the reference rest transforms. An unchanged
// surface moves no anchor, so joints keep their rest positions up to the
// float roundtrip through the parent transforms.
func relocateJoints(doc *dna.Document, target *dna.Mesh, tolerance float32, rep *Report) ([]dna.Joint, error) {
	ref, err := doc.Mesh(0)
	if err != nil {
		return nil, err
	}
	anchors, present := uvmap.JointAnchors(ref, doc.JointCount())

	refMapper, err := uvmap.New(ref, tolerance)
	if err != nil {
		return nil, err
	}
	targetMapper, err := uvmap.New(target, tolerance)
	if err != nil {
		return nil, err
	}

	joints := append([]dna.Joint(nil), doc.Joints()...)
	refWorlds := jointWorlds(doc.Joints())
	newWorlds := make([]math32.Matrix4, len(joints))

	for i := range joints {
		j := &joints[i]
		if present[i] {
			from := refMapper.BlendVector3(ref.Positions, refMapper.Lookup(anchors[i]))
			to := targetMapper.BlendVector3(target.Positions, targetMapper.Lookup(anchors[i]))
			world := math32.Vector3{}.MulMatrix4AsVector4(&refWorlds[i], 1).Add(to.Sub(from))

			local := world
			if j.Parent >= 0 {
				if inv, invErr := newWorlds[j.Parent].Inverse(); invErr == nil {
					local = world.MulMatrix4AsVector4(inv, 1)
				} else {
					local = j.Translation
				}
			}
			j.Translation = local
			rep.RelocatedJoints++
		}

		local := localMatrix(j)
		if j.Parent >= 0 {
			newWorlds[i].MulMatrices(&newWorlds[j.Parent], &local)
		} else {
			newWorlds[i] = local
		}
	}
	return joints, nil
}

// jointWorlds composes each joint's bind transform in world space. Joints
// are stored parents first, so one forward pass suffices.
func jointWorlds(joints []dna.Joint) []math32.Matrix4 {
	worlds := make([]math32.Matrix4, len(joints))
	for i := range joints {
		local := localMatrix(&joints[i])
		if p := joints[i].Parent; p >= 0 {
			worlds[i].MulMatrices(&worlds[p], &local)
		} else {
			worlds[i] = local
		}
	}
	return worlds
}

func localMatrix(j *dna.Joint) math32.Matrix4 {
	var m math32.Matrix4
	m.SetTransform(j.Translation, math32.NewQuatEuler(j.Rotation.MulScalar(math32.DegToRadFactor)), j.Scale)
	return m
}
