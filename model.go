package vkrender

// ModelStorage owns the mesh data drawn by the renderer. It is handed by
// reference to the upload and draw paths.
type ModelStorage struct {
	Vertices VertexSlice
	Indices  IndexSliceUint32
}

// NewModelStorage copies vertices and indices into a new ModelStorage
func NewModelStorage(vertices []Vertex, indices []uint32) *ModelStorage {
	m := &ModelStorage{
		Vertices: make(VertexSlice, len(vertices)),
		Indices:  make(IndexSliceUint32, len(indices)),
	}
	copy(m.Vertices, vertices)
	copy(m.Indices, indices)
	return m
}

func (m *ModelStorage) IndexCount() uint32 {
	return m.Indices.Count()
}

var (
	_ VertexSource = VertexSlice(nil)
	_ IndexSource  = IndexSliceUint32(nil)
)
