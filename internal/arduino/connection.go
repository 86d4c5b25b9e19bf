package arduino

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/afancontrol/afancontrol/internal/configuration"
	"github.com/afancontrol/afancontrol/internal/ui"
	cmap "github.com/orcaman/concurrent-map/v2"
	"go.bug.st/serial"
)

var (
	ConnectionMap = cmap.New[*Connection]()
)

// Connection is a persistent, auto-reconnecting serial link to a single
// board, shared by all fans attached to it. The connection is reference
// counted: the port is opened on the first Acquire and closed on the last
// Release. A background reader keeps the latest status line cached, a
// watchdog goroutine reopens the port when the reader dies.
type Connection struct {
	name      string
	port      string
	baudRate  int
	statusTtl time.Duration

	// openPort is swapped out in tests
	openPort func() (io.ReadWriteCloser, error)

	mu           sync.Mutex
	depth        int
	transport    io.ReadWriteCloser
	readerAlive  bool
	status       *StatusMessage
	statusAt     time.Time
	statusSignal chan struct{}

	checkCh chan struct{}
	stopCh  chan struct{}
}

func NewConnection(config configuration.ArduinoConfig) *Connection {
	c := &Connection{
		name:         config.ID,
		port:         config.Port,
		baudRate:     config.BaudRate,
		statusTtl:    config.StatusTtl,
		statusSignal: make(chan struct{}),
	}
	c.openPort = c.openSerialPort
	return c
}

func (c *Connection) Name() string {
	return c.name
}

func (c *Connection) Port() string {
	return c.port
}

func (c *Connection) openSerialPort() (io.ReadWriteCloser, error) {
	mode := &serial.Mode{
		BaudRate: c.baudRate,
	}
	port, err := serial.Open(c.port, mode)
	if err != nil {
		return nil, fmt.Errorf("unable to open serial port %s: %w", c.port, err)
	}
	return port, nil
}

// Acquire opens the connection on first use. It is reentrant, nested
// acquisitions only increment a depth counter.
func (c *Connection) Acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.depth == 0 {
		if err := c.connectLocked(); err != nil {
			return err
		}
		c.checkCh = make(chan struct{}, 1)
		c.stopCh = make(chan struct{})
		go c.watchdog(c.checkCh, c.stopCh)
	}
	c.depth++
	return nil
}

// Release closes the connection when the last user is gone.
func (c *Connection) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.depth <= 0 {
		return fmt.Errorf("arduino %s: release without acquire", c.name)
	}
	c.depth--
	if c.depth > 0 {
		return nil
	}

	close(c.stopCh)
	err := c.closeTransportLocked()
	c.status = nil
	return err
}

func (c *Connection) connectLocked() error {
	transport, err := c.openPort()
	if err != nil {
		return err
	}
	c.transport = transport
	c.readerAlive = true
	go c.readLoop(transport)
	return nil
}

func (c *Connection) closeTransportLocked() error {
	if c.transport == nil {
		return nil
	}
	err := c.transport.Close()
	c.transport = nil
	return err
}

// readLoop consumes newline-terminated JSON status lines until the
// transport dies. Malformed lines are logged and dropped, they must
// never terminate the reader.
func (c *Connection) readLoop(transport io.ReadWriteCloser) {
	scanner := bufio.NewScanner(transport)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var message StatusMessage
		if err := json.Unmarshal(line, &message); err != nil {
			ui.Warning("Arduino %s: unable to parse status line as json: %s", c.name, string(line))
			continue
		}
		if len(message.Error) > 0 {
			ui.Warning("Arduino %s: received an error from the board: %s", c.name, message.Error)
			continue
		}

		c.updateStatus(&message)
	}

	c.mu.Lock()
	if c.transport == transport {
		c.readerAlive = false
	}
	c.mu.Unlock()
	c.RequestCheck()
}

func (c *Connection) updateStatus(status *StatusMessage) {
	c.mu.Lock()
	c.status = status
	c.statusAt = time.Now()
	close(c.statusSignal)
	c.statusSignal = make(chan struct{})
	c.mu.Unlock()
}

// watchdog owns reconnection: on a health check request it probes the
// reader and transparently reopens the transport if it has died.
func (c *Connection) watchdog(checkCh <-chan struct{}, stopCh <-chan struct{}) {
	for {
		select {
		case <-stopCh:
			return
		case <-checkCh:
			c.mu.Lock()
			if c.depth <= 0 || c.readerAlive {
				c.mu.Unlock()
				continue
			}
			ui.Warning("Arduino %s: connection lost, reconnecting...", c.name)
			if err := c.closeTransportLocked(); err != nil {
				ui.Error("Arduino %s: unable to cleanly close the serial connection: %v", c.name, err)
			}
			if err := c.connectLocked(); err != nil {
				ui.Error("Arduino %s: reconnect failed: %v", c.name, err)
			}
			c.mu.Unlock()
		}
	}
}

// RequestCheck asks the watchdog to probe the connection health. It never
// blocks, redundant requests are collapsed.
func (c *Connection) RequestCheck() {
	c.mu.Lock()
	checkCh := c.checkCh
	depth := c.depth
	c.mu.Unlock()

	if depth <= 0 || checkCh == nil {
		return
	}
	select {
	case checkCh <- struct{}{}:
	default:
	}
}

// WaitForStatus blocks until the next status line arrives, bounded by the
// status TTL.
func (c *Connection) WaitForStatus() error {
	c.mu.Lock()
	signal := c.statusSignal
	c.mu.Unlock()

	select {
	case <-signal:
		return nil
	case <-time.After(c.statusTtl):
		return fmt.Errorf("arduino %s: timed out waiting for a status from the board at %s", c.name, c.port)
	}
}

func (c *Connection) GetRpm(pin int) (int, error) {
	status, err := c.validStatus()
	if err != nil {
		return 0, err
	}
	rpm, ok := status.FanInputs[strconv.Itoa(pin)]
	if !ok {
		return 0, fmt.Errorf("arduino %s: no fan_inputs value for pin %d", c.name, pin)
	}
	return rpm, nil
}

func (c *Connection) GetPwm(pin int) (int, error) {
	status, err := c.validStatus()
	if err != nil {
		return 0, err
	}
	pwm, ok := status.FanPwm[strconv.Itoa(pin)]
	if !ok {
		return 0, fmt.Errorf("arduino %s: no fan_pwm value for pin %d", c.name, pin)
	}
	return pwm, nil
}

// SetPwm serializes a set-pwm command frame and writes it to the board.
// A failed write triggers a connection health check.
func (c *Connection) SetPwm(pin int, pwm int) error {
	c.mu.Lock()
	transport := c.transport
	c.mu.Unlock()

	if transport == nil {
		return fmt.Errorf("arduino %s: not connected", c.name)
	}

	command := SetPwmCommand{PwmPin: uint8(pin), Pwm: uint8(pwm)}
	if _, err := transport.Write(command.Bytes()); err != nil {
		c.RequestCheck()
		return fmt.Errorf("arduino %s: write failed: %w", c.name, err)
	}
	return nil
}

// validStatus returns the cached status, waiting for the first one to
// arrive and rejecting it once it is older than the status TTL.
func (c *Connection) validStatus() (*StatusMessage, error) {
	c.mu.Lock()
	status := c.status
	c.mu.Unlock()

	if status == nil {
		if err := c.WaitForStatus(); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return nil, fmt.Errorf("arduino %s: no status from the board at %s", c.name, c.port)
	}
	age := time.Since(c.statusAt)
	if age > c.statusTtl {
		c.requestCheckFromLocked()
		return nil, fmt.Errorf("arduino %s: the last received status is too old: %s", c.name, age)
	}
	return c.status, nil
}

func (c *Connection) requestCheckFromLocked() {
	if c.depth <= 0 || c.checkCh == nil {
		return
	}
	select {
	case c.checkCh <- struct{}{}:
	default:
	}
}

// IsConnected reports whether a sufficiently fresh status is available.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return false
	}
	return time.Since(c.statusAt) <= c.statusTtl
}

// StatusAge returns the age of the cached status. The second return value
// is false while no status has been received yet.
func (c *Connection) StatusAge() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == nil {
		return 0, false
	}
	return time.Since(c.statusAt), true
}
