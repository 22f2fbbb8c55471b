package directory

import "sync"

type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Binding records where a connection currently lives.
type Binding struct {
	Name     string
	RoomCode string
	Role     Role
}

// Directory maps connection ids to their room and role. It is shared
// across all connection handlers, so access is mutex-guarded.
type Directory struct {
	mu       sync.RWMutex
	bindings map[string]Binding
}

func New() *Directory {
	return &Directory{bindings: make(map[string]Binding)}
}

// Bind overwrites any prior binding for the id.
func (d *Directory) Bind(id, name, roomCode string, role Role) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings[id] = Binding{Name: name, RoomCode: roomCode, Role: role}
}

func (d *Directory) Resolve(id string) (Binding, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.bindings[id]
	return b, ok
}

func (d *Directory) Unbind(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bindings, id)
}

// DropRoom removes every binding pointing at the room; used when the
// host leaves and the room closes for everyone.
func (d *Directory) DropRoom(roomCode string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, b := range d.bindings {
		if b.RoomCode == roomCode {
			delete(d.bindings, id)
		}
	}
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bindings)
}
