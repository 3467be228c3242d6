package config

import (
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwgrid/engine/common"
	"github.com/xiaonanln/gwgrid/engine/consts"
	"github.com/xiaonanln/gwgrid/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE          = "gwgrid.ini"
	_DEFAULT_LOCALHOST_IP         = "127.0.0.1"
	_DEFAULT_LOG_LEVEL            = "debug"
	_DEFAULT_SERVER_PORT          = 17001
	_DEFAULT_NETWORK              = "tcp"
	_DEFAULT_WS_PATH              = "/ws"
	_DEFAULT_RECONNECT_PER_SECOND = 0.2
	_DEFAULT_WORLD_FILE           = "world.yaml"
	_DEFAULT_KEY_PREFIX           = "gwgrid:"
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	gwgridConfig   *GWGridConfig
	configLock     sync.Mutex
)

// GridConfig defines fields of the grid registry config
type GridConfig struct {
	ConnectRange       int
	HalfConnectRange   int
	SwitchStayDuration time.Duration
}

// ClientConfig defines fields of gridclient config
type ClientConfig struct {
	LogFile            string
	LogStderr          bool
	LogLevel           string
	TickInterval       time.Duration
	ReconnectPerSecond float64
	Offline            bool
	CellPlugins        []string
}

// TransportConfig defines fields of the client transport config
type TransportConfig struct {
	Network        string // tcp, kcp or ws
	ConnectTimeout time.Duration
	WSPath         string
}

// UserConfig defines the local user and the home server
type UserConfig struct {
	Nickname    string
	Username    string
	Password    string `json:"-"`
	HomeAddress string
	HomePort    int
	HomeName    string
}

// DirectoryConfig defines fields of the world directory config
type DirectoryConfig struct {
	Type      string // file or redis
	File      string // world.yaml (file)
	Url       string // redis url (redis)
	DB        int    // redis db index (redis)
	KeyPrefix string // redis key prefix (redis)
}

// ServerConfig defines fields of gridserver config
type ServerConfig struct {
	Name       string
	Ip         string
	Port       int
	Network    string
	WSPath     string
	MaxClients int
	Banned     common.StringSet
	Password   string `json:"-"`
	CellX      int
	CellZ      int
	Register   bool
	LogFile    string
	LogStderr  bool
	LogLevel   string
}

// GWGridConfig defines the total config file structure
type GWGridConfig struct {
	Grid      GridConfig
	Client    ClientConfig
	Transport TransportConfig
	User      UserConfig
	Directory DirectoryConfig
	Server    ServerConfig
}

// SetConfigFile sets the config file path (gwgrid.ini by default)
func SetConfigFile(f string) {
	configFilePath = f
}

// GetConfigDir returns the directory of gwgrid.ini
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config
func Get() *GWGridConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if gwgridConfig == nil {
		gwgridConfig = readGWGridConfig()
	}
	return gwgridConfig
}

// Reload forces the whole config to be read again
func Reload() *GWGridConfig {
	configLock.Lock()
	gwgridConfig = nil
	configLock.Unlock()

	return Get()
}

// GetGrid returns the grid config
func GetGrid() *GridConfig {
	return &Get().Grid
}

// GetClient returns the gridclient config
func GetClient() *ClientConfig {
	return &Get().Client
}

// GetTransport returns the transport config
func GetTransport() *TransportConfig {
	return &Get().Transport
}

// GetUser returns the user config
func GetUser() *UserConfig {
	return &Get().User
}

// GetDirectory returns the directory config
func GetDirectory() *DirectoryConfig {
	return &Get().Directory
}

// GetServer returns the gridserver config
func GetServer() *ServerConfig {
	return &Get().Server
}

// DumpPretty format config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

func readGWGridConfig() *GWGridConfig {
	config := GWGridConfig{}
	readGridConfig(nil, &config.Grid)
	readClientConfig(nil, &config.Client)
	readTransportConfig(nil, &config.Transport)
	readUserConfig(nil, &config.User)
	readDirectoryConfig(nil, &config.Directory)
	readServerConfig(nil, &config.Server)

	gwlog.Infof("Using config file: %s", configFilePath)
	iniFile, err := ini.Load(configFilePath)
	checkConfigError(err, "")

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == "default" {
			continue
		}

		switch secName {
		case "grid":
			readGridConfig(sec, &config.Grid)
		case "client":
			readClientConfig(sec, &config.Client)
		case "transport":
			readTransportConfig(sec, &config.Transport)
		case "user":
			readUserConfig(sec, &config.User)
		case "directory":
			readDirectoryConfig(sec, &config.Directory)
		case "server":
			readServerConfig(sec, &config.Server)
		default:
			gwlog.Errorf("unknown section: %s", secName)
		}
	}

	validateConfig(&config)
	return &config
}

func readGridConfig(sec *ini.Section, config *GridConfig) {
	if sec == nil {
		config.ConnectRange = consts.DEFAULT_CONNECT_RANGE
		config.HalfConnectRange = consts.DEFAULT_HALF_CONNECT_RANGE
		config.SwitchStayDuration = consts.DEFAULT_SWITCH_STAY_DURATION
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "connect_range" {
			config.ConnectRange = key.MustInt(config.ConnectRange)
		} else if name == "half_connect_range" {
			config.HalfConnectRange = key.MustInt(config.HalfConnectRange)
		} else if name == "switch_stay_duration" {
			secs := key.MustFloat64(config.SwitchStayDuration.Seconds())
			config.SwitchStayDuration = time.Duration(secs * float64(time.Second))
		} else {
			gwlog.Panicf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readClientConfig(sec *ini.Section, config *ClientConfig) {
	if sec == nil {
		config.LogFile = "gridclient.log"
		config.LogStderr = true
		config.LogLevel = _DEFAULT_LOG_LEVEL
		config.TickInterval = consts.DEFAULT_TICK_INTERVAL
		config.ReconnectPerSecond = _DEFAULT_RECONNECT_PER_SECOND
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "log_file" {
			config.LogFile = key.MustString(config.LogFile)
		} else if name == "log_stderr" {
			config.LogStderr = key.MustBool(config.LogStderr)
		} else if name == "log_level" {
			config.LogLevel = key.MustString(config.LogLevel)
		} else if name == "tick_interval_ms" {
			config.TickInterval = time.Millisecond * time.Duration(key.MustInt(int(config.TickInterval/time.Millisecond)))
		} else if name == "reconnect_per_second" {
			config.ReconnectPerSecond = key.MustFloat64(config.ReconnectPerSecond)
		} else if name == "offline" {
			config.Offline = key.MustBool(config.Offline)
		} else if name == "cell_plugins" {
			config.CellPlugins = splitList(key.String())
		} else {
			gwlog.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readTransportConfig(sec *ini.Section, config *TransportConfig) {
	if sec == nil {
		config.Network = _DEFAULT_NETWORK
		config.ConnectTimeout = consts.DEFAULT_CONNECT_TIMEOUT
		config.WSPath = _DEFAULT_WS_PATH
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "network" {
			config.Network = strings.ToLower(key.MustString(config.Network))
		} else if name == "connect_timeout_ms" {
			config.ConnectTimeout = time.Millisecond * time.Duration(key.MustInt(int(config.ConnectTimeout/time.Millisecond)))
		} else if name == "ws_path" {
			config.WSPath = key.MustString(config.WSPath)
		} else {
			gwlog.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readUserConfig(sec *ini.Section, config *UserConfig) {
	if sec == nil {
		config.HomeAddress = _DEFAULT_LOCALHOST_IP
		config.HomePort = _DEFAULT_SERVER_PORT
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "nickname" {
			config.Nickname = key.MustString(config.Nickname)
		} else if name == "username" {
			config.Username = key.MustString(config.Username)
		} else if name == "password" {
			config.Password = key.MustString(config.Password)
		} else if name == "home_address" {
			config.HomeAddress = key.MustString(config.HomeAddress)
		} else if name == "home_port" {
			config.HomePort = key.MustInt(config.HomePort)
		} else if name == "home_name" {
			config.HomeName = key.MustString(config.HomeName)
		} else {
			gwlog.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	if config.Nickname == "" {
		config.Nickname = config.Username
	}
}

func readDirectoryConfig(sec *ini.Section, config *DirectoryConfig) {
	if sec == nil {
		config.Type = "file"
		config.File = _DEFAULT_WORLD_FILE
		config.KeyPrefix = _DEFAULT_KEY_PREFIX
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "type" {
			config.Type = strings.ToLower(key.MustString(config.Type))
		} else if name == "file" {
			config.File = key.MustString(config.File)
		} else if name == "url" {
			config.Url = key.MustString(config.Url)
		} else if name == "db" {
			db, err := strconv.Atoi(key.String())
			if err != nil {
				gwlog.Panic(errors.Wrap(err, "redis db must be integer"))
			}
			config.DB = db
		} else if name == "key_prefix" {
			config.KeyPrefix = key.MustString(config.KeyPrefix)
		} else {
			gwlog.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readServerConfig(sec *ini.Section, config *ServerConfig) {
	if sec == nil {
		config.Ip = _DEFAULT_LOCALHOST_IP
		config.Port = _DEFAULT_SERVER_PORT
		config.Network = _DEFAULT_NETWORK
		config.WSPath = _DEFAULT_WS_PATH
		config.Banned = common.StringSet{}
		config.LogFile = "gridserver.log"
		config.LogStderr = true
		config.LogLevel = _DEFAULT_LOG_LEVEL
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "name" {
			config.Name = key.MustString(config.Name)
		} else if name == "ip" {
			config.Ip = key.MustString(config.Ip)
		} else if name == "port" {
			config.Port = key.MustInt(config.Port)
		} else if name == "network" {
			config.Network = strings.ToLower(key.MustString(config.Network))
		} else if name == "ws_path" {
			config.WSPath = key.MustString(config.WSPath)
		} else if name == "max_clients" {
			config.MaxClients = key.MustInt(config.MaxClients)
		} else if name == "banned" {
			config.Banned = common.NewStringSet(splitList(key.String())...)
		} else if name == "password" {
			config.Password = key.MustString(config.Password)
		} else if name == "cell_x" {
			config.CellX = key.MustInt(config.CellX)
		} else if name == "cell_z" {
			config.CellZ = key.MustInt(config.CellZ)
		} else if name == "register" {
			config.Register = key.MustBool(config.Register)
		} else if name == "log_file" {
			config.LogFile = key.MustString(config.LogFile)
		} else if name == "log_stderr" {
			config.LogStderr = key.MustBool(config.LogStderr)
		} else if name == "log_level" {
			config.LogLevel = key.MustString(config.LogLevel)
		} else {
			gwlog.Errorf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
	if config.Name == "" {
		config.Name = config.Ip + ":" + strconv.Itoa(config.Port)
	}
}

func splitList(s string) []string {
	var list []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	return list
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateGridConfig(config *GridConfig) {
	if config.ConnectRange < 0 {
		gwlog.Panicf("connect_range must not be negative: %d", config.ConnectRange)
	}
	if config.HalfConnectRange < config.ConnectRange {
		gwlog.Panicf("half_connect_range %d must not be smaller than connect_range %d", config.HalfConnectRange, config.ConnectRange)
	}
	if config.SwitchStayDuration < 0 {
		gwlog.Panicf("switch_stay_duration must not be negative: %s", config.SwitchStayDuration)
	}
}

func validateNetwork(network string) {
	if network != "tcp" && network != "kcp" && network != "ws" {
		gwlog.Panicf("unknown network: %s", network)
	}
}

func validateDirectoryConfig(config *DirectoryConfig) {
	if config.Type == "file" {
		if config.File == "" {
			gwlog.Panicf("file is not set in %s directory config", config.Type)
		}
	} else if config.Type == "redis" {
		if config.Url == "" {
			gwlog.Panicf("redis url is not set")
		}
	} else {
		gwlog.Panicf("unknown directory type: %s", config.Type)
	}
}

func validateConfig(config *GWGridConfig) {
	validateGridConfig(&config.Grid)
	validateNetwork(config.Transport.Network)
	validateNetwork(config.Server.Network)
	validateDirectoryConfig(&config.Directory)

	if config.Client.TickInterval <= 0 {
		gwlog.Panicf("tick_interval_ms must be positive")
	}
	if config.Client.ReconnectPerSecond < 0 {
		gwlog.Panicf("reconnect_per_second must not be negative")
	}
	if config.Transport.ConnectTimeout <= 0 {
		gwlog.Panicf("connect_timeout_ms must be positive")
	}
}
