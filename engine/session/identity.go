package session

import (
	"fmt"

	"github.com/xiaonanln/gwgrid/engine/transport"
)

// ServerIdentity identifies the server behind a grid cell
type ServerIdentity struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	Name    string `yaml:"name"`
}

// LoopbackIdentity is the identity of offline sessions
var LoopbackIdentity = ServerIdentity{Address: "loopback", Port: 0, Name: "offline"}

// IsLoopback returns if the identity is the offline sentinel
func (id ServerIdentity) IsLoopback() bool {
	return id == LoopbackIdentity
}

func (id ServerIdentity) String() string {
	return fmt.Sprintf("%s@%s:%d", id.Name, id.Address, id.Port)
}

// UserIdentity is the user logging into servers
type UserIdentity struct {
	Nickname   string
	Username   string
	Password   string
	HomeServer ServerIdentity
}

func (u UserIdentity) String() string {
	return fmt.Sprintf("%s/%s (home %s)", u.Nickname, u.Username, u.HomeServer)
}

// GoString hides the password from %#v
func (u UserIdentity) GoString() string {
	return fmt.Sprintf("session.UserIdentity{Nickname:%q, Username:%q, HomeServer:%#v}", u.Nickname, u.Username, u.HomeServer)
}

// Credentials returns what is sent to servers in the connect request
func (u UserIdentity) Credentials() transport.Credentials {
	return transport.Credentials{
		Nickname: u.Nickname,
		Username: u.Username,
		Password: u.Password,
	}
}
