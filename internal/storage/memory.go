package storage

// MemoryBackend keeps the document in process. Saved bytes are copied so
// later mutation by the caller cannot leak in.
type MemoryBackend struct {
	data  []byte
	saves int
	fail  error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// NewMemoryBackendWith seeds the backend with an existing document.
func NewMemoryBackendWith(data []byte) *MemoryBackend {
	m := &MemoryBackend{}
	if data != nil {
		m.data = append([]byte(nil), data...)
	}
	return m
}

func (m *MemoryBackend) Location() string { return "memory" }

func (m *MemoryBackend) Load() ([]byte, error) {
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Save(data []byte) error {
	if m.fail != nil {
		return m.fail
	}
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

// Saves reports how many successful writes happened.
func (m *MemoryBackend) Saves() int { return m.saves }

// FailWith makes every following Save return err; nil restores writes.
func (m *MemoryBackend) FailWith(err error) { m.fail = err }
