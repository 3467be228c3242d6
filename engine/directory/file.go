package directory

import (
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/session"
	"gopkg.in/yaml.v3"
)

type yamlWorldFile struct {
	Cells []yamlCell `yaml:"cells"`
}

type yamlCell struct {
	X       int32  `yaml:"x"`
	Z       int32  `yaml:"z"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
}

// FileDirectory is a directory loaded from a world yaml file
type FileDirectory struct {
	sync.RWMutex
	path    string
	servers map[common.GridCell]session.ServerIdentity
}

// OpenFile loads the world file at path. Register and Unregister write the file back.
func OpenFile(path string) (*FileDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read world file %s", path)
	}
	d, err := ParseFile(data)
	if err != nil {
		return nil, errors.Wrapf(err, "load world file %s", path)
	}
	d.path = path
	gwlog.Infof("directory: loaded %d cells from %s", len(d.servers), path)
	return d, nil
}

// ParseFile parses world yaml into an in-memory directory
func ParseFile(data []byte) (*FileDirectory, error) {
	var file yamlWorldFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse world yaml")
	}

	d := &FileDirectory{servers: make(map[common.GridCell]session.ServerIdentity, len(file.Cells))}
	for _, yc := range file.Cells {
		cell := common.GridCell{X: yc.X, Z: yc.Z}
		if _, ok := d.servers[cell]; ok {
			return nil, errors.Errorf("cell %s is listed twice", cell)
		}
		id := session.ServerIdentity{Address: yc.Address, Port: yc.Port, Name: yc.Name}
		if err := validateIdentity(id); err != nil {
			return nil, errors.Wrapf(err, "cell %s", cell)
		}
		d.servers[cell] = id
	}
	return d, nil
}

// Resolve returns the server of cell
func (d *FileDirectory) Resolve(cell common.GridCell) (session.ServerIdentity, bool) {
	d.RLock()
	id, ok := d.servers[cell]
	d.RUnlock()
	return id, ok
}

// Register sets the server of cell
func (d *FileDirectory) Register(cell common.GridCell, id session.ServerIdentity) error {
	if err := validateIdentity(id); err != nil {
		return err
	}
	d.Lock()
	defer d.Unlock()
	d.servers[cell] = id
	return d.save()
}

// Unregister removes the server of cell
func (d *FileDirectory) Unregister(cell common.GridCell) error {
	d.Lock()
	defer d.Unlock()
	delete(d.servers, cell)
	return d.save()
}

// Cells returns all cells in order
func (d *FileDirectory) Cells() ([]common.GridCell, error) {
	d.RLock()
	defer d.RUnlock()
	return d.sortedCells(), nil
}

// Close does nothing for file directories
func (d *FileDirectory) Close() error {
	return nil
}

func (d *FileDirectory) sortedCells() []common.GridCell {
	cells := make([]common.GridCell, 0, len(d.servers))
	for cell := range d.servers {
		cells = append(cells, cell)
	}
	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Less(cells[j])
	})
	return cells
}

func (d *FileDirectory) save() error {
	if d.path == "" {
		return nil
	}

	var file yamlWorldFile
	for _, cell := range d.sortedCells() {
		id := d.servers[cell]
		file.Cells = append(file.Cells, yamlCell{X: cell.X, Z: cell.Z, Address: id.Address, Port: id.Port, Name: id.Name})
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return errors.Wrap(err, "marshal world yaml")
	}

	tmp := d.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrapf(err, "write world file %s", tmp)
	}
	return errors.Wrapf(os.Rename(tmp, d.path), "replace world file %s", d.path)
}

func validateIdentity(id session.ServerIdentity) error {
	if id.Address == "" {
		return errors.New("server address is empty")
	}
	if id.Port <= 0 || id.Port > 65535 {
		return errors.Errorf("server port %d is out of range", id.Port)
	}
	return nil
}

func joinPath(baseDir, p string) string {
	if baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
