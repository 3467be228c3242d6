package consts

import "time"

// Grid Options
const (
	// GRID_CELL_SIZE is the edge length of one grid cell in world units
	GRID_CELL_SIZE = 1024.0
	// DEFAULT_CONNECT_RANGE is the Chebyshev distance within which servers are fully connected
	DEFAULT_CONNECT_RANGE = 1
	// DEFAULT_HALF_CONNECT_RANGE is the Chebyshev distance within which servers are half connected
	DEFAULT_HALF_CONNECT_RANGE = 2
	// DEFAULT_SWITCH_STAY_DURATION is how long the avatar must stay in a new cell before the active server switches
	DEFAULT_SWITCH_STAY_DURATION = time.Second * 3
	// GRID_UPDATE_WARN_THRESHOLD is the registry update duration that triggers an opmon warning
	GRID_UPDATE_WARN_THRESHOLD = time.Millisecond * 20
)

// Tunable Options
const (
	// For Underlying Networking
	// BUFFERED_READ_BUFFSIZE is the read buffer size for buffered connections
	BUFFERED_READ_BUFFSIZE = 16384
	// BUFFERED_WRITE_BUFFSIZE is the write buffer size for buffered connections
	BUFFERED_WRITE_BUFFSIZE = 16384
	// MAX_PACKET_PAYLOAD_LENGTH is the maximum payload length of a single packet
	MAX_PACKET_PAYLOAD_LENGTH = 16 * 1024 * 1024
	// CLIENT_SOCKET_READ_BUFFER_SIZE is the OS read buffer size for client sockets
	CLIENT_SOCKET_READ_BUFFER_SIZE = 256 * 1024
	// CLIENT_SOCKET_WRITE_BUFFER_SIZE is the OS write buffer size for client sockets
	CLIENT_SOCKET_WRITE_BUFFER_SIZE = 256 * 1024
	// DEFAULT_CONNECT_TIMEOUT is the dial timeout used when the config does not set one
	DEFAULT_CONNECT_TIMEOUT = time.Second * 5
	// HANDSHAKE_TIMEOUT is how long a cell server waits for the connect request
	HANDSHAKE_TIMEOUT = time.Second * 10
	// PACKET_FLUSH_LINGER is how long a connection stays open after its last message before closing
	PACKET_FLUSH_LINGER = time.Millisecond * 100

	// For Handshake
	// PROTOCOL_VERSION is sent in every connect request; servers deny other versions
	PROTOCOL_VERSION = 1

	// For Client Loop
	// DEFAULT_TICK_INTERVAL is the default interval between two registry updates
	DEFAULT_TICK_INTERVAL = time.Millisecond * 50
	// CLIENT_LOOP_SLEEP is the sleep between timer ticks in the client main loop
	CLIENT_LOOP_SLEEP = time.Millisecond * 5
	// LINK_POLL_WARN_THRESHOLD is the link poll duration that triggers an opmon warning
	LINK_POLL_WARN_THRESHOLD = time.Millisecond * 5

	// For Async Jobs
	// ASYNC_JOB_QUEUE_MAXLEN is the queue length of each async job group
	ASYNC_JOB_QUEUE_MAXLEN = 1024
	// DIRECTORY_REFRESH_INTERVAL is the interval to reload the world directory in the background
	DIRECTORY_REFRESH_INTERVAL = time.Second * 10

	// For Operation Monitor
	// OPMON_DUMP_INTERVAL is the interval to print opmon infos to output
	OPMON_DUMP_INTERVAL = 0
)

// Debug Options
const (
	// DEBUG_PACKETS prints packet send/recv debug logs
	DEBUG_PACKETS = false
	// DEBUG_LINKS prints connection state transitions
	DEBUG_LINKS = false
	// DEBUG_SESSIONS prints server state transitions
	DEBUG_SESSIONS = false
	// DEBUG_GRID prints registry switching and policy decisions
	DEBUG_GRID = false
)

//  System level configurations
const (
	// DEBUG_MODE = true turns on debug mode
	DEBUG_MODE = false
)
