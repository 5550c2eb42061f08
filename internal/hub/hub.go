// Package hub keeps track of websocket connections and their group
// memberships and fans change events out to them.
package hub

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

var ErrUnknownConnection = errors.New("unknown connection")

// Conn is one registered client. Send must not block; it returns false when
// the frame could not be queued.
type Conn interface {
	ID() string
	Send(frame []byte) bool
	Close()
}

// Hub is the connection registry. All methods are safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	conns       map[string]Conn
	groups      map[string]map[string]struct{}
	memberships map[string]map[string]struct{}
	log         zerolog.Logger
}

func New(log zerolog.Logger) *Hub {
	return &Hub{
		conns:       make(map[string]Conn),
		groups:      make(map[string]map[string]struct{}),
		memberships: make(map[string]map[string]struct{}),
		log:         log,
	}
}

// Register adds a connection with no group memberships.
func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	h.conns[c.ID()] = c
	h.memberships[c.ID()] = make(map[string]struct{})
	n := len(h.conns)
	h.mu.Unlock()

	metrics.HubConnections.Set(float64(n))
	h.log.Debug().Str("connection_id", c.ID()).Int("connections", n).Msg("connection registered")
}

// Unregister removes the connection and every membership it held. Unknown ids
// are ignored.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	if _, ok := h.conns[id]; !ok {
		h.mu.Unlock()
		return
	}
	for group := range h.memberships[id] {
		h.removeMember(group, id)
	}
	delete(h.memberships, id)
	delete(h.conns, id)
	n := len(h.conns)
	h.mu.Unlock()

	metrics.HubConnections.Set(float64(n))
	h.log.Debug().Str("connection_id", id).Int("connections", n).Msg("connection unregistered")
}

// Join adds the connection to group. Joining twice is a no-op.
func (h *Hub) Join(connID, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	groups, ok := h.memberships[connID]
	if !ok {
		return ErrUnknownConnection
	}
	groups[group] = struct{}{}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]struct{})
		h.groups[group] = members
	}
	members[connID] = struct{}{}
	return nil
}

// Leave removes the connection from group.
func (h *Hub) Leave(connID, group string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	groups, ok := h.memberships[connID]
	if !ok {
		return ErrUnknownConnection
	}
	delete(groups, group)
	h.removeMember(group, connID)
	return nil
}

// removeMember expects h.mu to be held for writing.
func (h *Hub) removeMember(group, connID string) {
	members := h.groups[group]
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Groups lists the groups connID belongs to, sorted.
func (h *Hub) Groups(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.memberships[connID])
}

// CloseAll closes and forgets every connection.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]Conn)
	h.groups = make(map[string]map[string]struct{})
	h.memberships = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	metrics.HubConnections.Set(0)
	h.log.Info().Int("connections", len(conns)).Msg("closed all connections")
}

// Members lists the connections in group, sorted.
func (h *Hub) Members(group string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return sortedKeys(h.groups[group])
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Delivery is the explicit target set of one event.
//
// A group event goes to the members of that group only. A global event goes
// to the members of the all-orders group and, separately, to every
// connection; a connection in all-orders therefore appears in both lists and
// receives the event twice.
type Delivery struct {
	Group    []string `json:"group"`
	Everyone []string `json:"everyone"`
}

// Size is the number of frames the delivery sends.
func (d Delivery) Size() int { return len(d.Group) + len(d.Everyone) }

// Plan computes the delivery lists for evt without sending anything.
func (h *Hub) Plan(evt domain.ChangeEvent) Delivery {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.plan(evt)
}

func (h *Hub) plan(evt domain.ChangeEvent) Delivery {
	if !evt.Global() {
		return Delivery{Group: sortedKeys(h.groups[evt.Group])}
	}
	everyone := make([]string, 0, len(h.conns))
	for id := range h.conns {
		everyone = append(everyone, id)
	}
	sort.Strings(everyone)
	return Delivery{
		Group:    sortedKeys(h.groups[domain.AllOrdersGroup]),
		Everyone: everyone,
	}
}

// Publish sends evt according to Plan. Connections whose buffer is full are
// dropped rather than allowed to stall the fan-out.
func (h *Hub) Publish(evt domain.ChangeEvent) (Delivery, error) {
	frame, err := encodeEvent(evt)
	if err != nil {
		return Delivery{}, err
	}

	h.mu.RLock()
	d := h.plan(evt)
	resolve := func(ids []string) []Conn {
		out := make([]Conn, 0, len(ids))
		for _, id := range ids {
			if c, ok := h.conns[id]; ok {
				out = append(out, c)
			}
		}
		return out
	}
	groupConns, everyoneConns := resolve(d.Group), resolve(d.Everyone)
	h.mu.RUnlock()

	h.fanOut(groupConns, frame, "group")
	h.fanOut(everyoneConns, frame, "everyone")
	return d, nil
}

func (h *Hub) fanOut(conns []Conn, frame []byte, list string) {
	for _, c := range conns {
		if c.Send(frame) {
			metrics.HubDeliveriesTotal.WithLabelValues(list).Inc()
			continue
		}
		metrics.HubSlowConsumersTotal.Inc()
		h.log.Warn().Str("connection_id", c.ID()).Msg("send buffer full, dropping connection")
		h.Unregister(c.ID())
		c.Close()
	}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
