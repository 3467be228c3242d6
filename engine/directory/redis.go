package directory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
	"github.com/xiaonanln/gwgrid/engine/session"
)

// RedisDirectory keeps one hash per cell: <prefix>cell:<x>:<z> -> {address, port, name}
type RedisDirectory struct {
	sync.Mutex
	c         redis.Conn
	keyPrefix string
}

// OpenRedis connects to the redis server at url (host:port or redis://...) and selects db
func OpenRedis(url string, dbindex int, keyPrefix string) (*RedisDirectory, error) {
	var c redis.Conn
	var err error
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		c, err = redis.DialURL(url)
	} else {
		c, err = redis.Dial("tcp", url)
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis dial failed")
	}

	if _, err := c.Do("SELECT", dbindex); err != nil {
		c.Close()
		return nil, errors.Wrapf(err, "redis select %d failed", dbindex)
	}

	return &RedisDirectory{c: c, keyPrefix: keyPrefix}, nil
}

func (d *RedisDirectory) cellKey(cell common.GridCell) string {
	return fmt.Sprintf("%scell:%d:%d", d.keyPrefix, cell.X, cell.Z)
}

func (d *RedisDirectory) parseCellKey(key string) (common.GridCell, bool) {
	var cell common.GridCell
	if !strings.HasPrefix(key, d.keyPrefix+"cell:") {
		return cell, false
	}
	_, err := fmt.Sscanf(key[len(d.keyPrefix):], "cell:%d:%d", &cell.X, &cell.Z)
	return cell, err == nil
}

// Resolve returns the server of cell; redis errors are logged and reported as unknown
func (d *RedisDirectory) Resolve(cell common.GridCell) (session.ServerIdentity, bool) {
	d.Lock()
	fields, err := redis.StringMap(d.c.Do("HGETALL", d.cellKey(cell)))
	d.Unlock()
	if err != nil {
		gwlog.Errorf("directory: resolve %s failed: %v", cell, err)
		return session.ServerIdentity{}, false
	}
	if len(fields) == 0 {
		return session.ServerIdentity{}, false
	}

	id := session.ServerIdentity{Address: fields["address"], Name: fields["name"]}
	if _, err := fmt.Sscanf(fields["port"], "%d", &id.Port); err != nil {
		gwlog.Errorf("directory: cell %s has invalid port %q", cell, fields["port"])
		return session.ServerIdentity{}, false
	}
	if err := validateIdentity(id); err != nil {
		gwlog.Errorf("directory: cell %s: %v", cell, err)
		return session.ServerIdentity{}, false
	}
	return id, true
}

// Register writes the server of cell
func (d *RedisDirectory) Register(cell common.GridCell, id session.ServerIdentity) error {
	if err := validateIdentity(id); err != nil {
		return err
	}
	d.Lock()
	defer d.Unlock()
	_, err := d.c.Do("HMSET", d.cellKey(cell), "address", id.Address, "port", id.Port, "name", id.Name)
	return errors.Wrapf(err, "redis register %s failed", cell)
}

// Unregister deletes the server of cell
func (d *RedisDirectory) Unregister(cell common.GridCell) error {
	d.Lock()
	defer d.Unlock()
	_, err := d.c.Do("DEL", d.cellKey(cell))
	return errors.Wrapf(err, "redis unregister %s failed", cell)
}

// Cells scans all cell keys and returns the cells in order
func (d *RedisDirectory) Cells() ([]common.GridCell, error) {
	d.Lock()
	defer d.Unlock()

	keyMatch := d.keyPrefix + "cell:*"
	seen := map[common.GridCell]bool{}
	var cells []common.GridCell
	cursor := interface{}("0")
	for {
		r, err := redis.Values(d.c.Do("SCAN", cursor, "MATCH", keyMatch, "COUNT", 1000))
		if err != nil {
			return nil, errors.Wrap(err, "redis scan failed")
		}
		keys, err := redis.Strings(r[1], nil)
		if err != nil {
			return nil, errors.Wrap(err, "redis scan failed")
		}
		for _, key := range keys {
			if cell, ok := d.parseCellKey(key); ok && !seen[cell] {
				seen[cell] = true
				cells = append(cells, cell)
			}
		}

		cursor = r[0]
		if isZeroCursor(cursor) {
			break
		}
	}

	sort.Slice(cells, func(i, j int) bool {
		return cells[i].Less(cells[j])
	})
	return cells, nil
}

// Close closes the redis connection
func (d *RedisDirectory) Close() error {
	d.Lock()
	defer d.Unlock()
	return d.c.Close()
}

func isZeroCursor(c interface{}) bool {
	b, ok := c.([]byte)
	return ok && string(b) == "0"
}
