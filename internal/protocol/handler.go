package protocol

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/neuhausf/fauxmo/internal/logging"
	"github.com/neuhausf/fauxmo/internal/plugin"
	"go.uber.org/zap"
)

// Request is the part of an HTTP request the handler needs.
type Request struct {
	Method     string
	Path       string
	SOAPAction string // raw SOAPACTION header
	Body       string
	RemoteAddr string
}

// Routes reported to observers
const (
	RouteSetup        = "setup"
	RouteEventService = "eventservice"
	RouteMetaInfo     = "metainfoservice"
	RouteInsight      = "insightservice"
	RouteTimeSync     = "timesync"
	RouteControl      = "control"
	RouteUnknown      = "unknown"
)

// Actions reported to observers
const (
	ActionGetBinaryState   = "GetBinaryState"
	ActionSetBinaryState   = "SetBinaryState"
	ActionGetFriendlyName  = "GetFriendlyName"
	ActionGetInsightParams = "GetInsightParams"
)

// ErrUnknownState is returned when a GetBinaryState cannot be answered
// because the plugin does not know whether the device is on.
var ErrUnknownState = errors.New("device state is unknown")

// ErrUnrecognized is returned for requests the device does not handle.
var ErrUnrecognized = errors.New("unrecognized request")

// Observer is told about every request a device handles.
type Observer interface {
	Served(device, route string)
	Action(device, action string, err error)
	StateChanged(device, serial string, state plugin.State)
}

// Handler answers HTTP requests for one emulated device.
type Handler struct {
	plugin    plugin.Plugin
	serial    string
	observers []Observer

	// Now and OnTime are replaceable in tests.
	Now    func() time.Time
	OnTime func() int
}

// NewHandler creates a handler serving p.
func NewHandler(p plugin.Plugin, observers ...Observer) *Handler {
	return &Handler{
		plugin:    p,
		serial:    Serial(p.Name()),
		observers: observers,
		Now:       time.Now,
		OnTime: func() int {
			return InsightOnTimeMin + rand.IntN(InsightOnTimeMax-InsightOnTimeMin+1)
		},
	}
}

// AddObserver registers o for all later requests. It must not be called
// while the handler is serving.
func (h *Handler) AddObserver(o Observer) {
	h.observers = append(h.observers, o)
}

// Name returns the device name.
func (h *Handler) Name() string { return h.plugin.Name() }

// Serial returns the device serial.
func (h *Handler) Serial() string { return h.serial }

// Plugin returns the plugin behind the device.
func (h *Handler) Plugin() plugin.Plugin { return h.plugin }

// Serve returns the full response for req, headers included. ok is false
// when nothing should be sent; the caller then just closes the connection.
func (h *Handler) Serve(ctx context.Context, req Request) (response []byte, ok bool) {
	name := h.plugin.Name()
	route := classify(req)
	h.served(route)

	var body string
	switch route {
	case RouteSetup:
		logging.Info("setup.xml requested", zap.String("device", name), zap.String("remote_addr", req.RemoteAddr))
		body = SetupXML(name, h.serial)
	case RouteEventService:
		body = EventServiceXML()
	case RouteMetaInfo:
		body = MetaInfoServiceXML()
	case RouteInsight:
		body = InsightServiceXML()
	case RouteTimeSync:
		body = TimeSyncResponse(h.Now())
	case RouteControl:
		var err error
		body, err = h.control(ctx, req)
		if err != nil {
			logging.Warn("Unable to complete command",
				zap.String("device", name),
				zap.String("remote_addr", req.RemoteAddr),
				zap.String("soap_action", req.SOAPAction),
				zap.String("body", req.Body),
				zap.Error(err),
			)
			return nil, false
		}
	default:
		logging.Debug("Ignoring request",
			zap.String("device", name),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
		)
		return nil, false
	}

	return WithHTTPHeaders(body, h.Now()), true
}

func classify(req Request) string {
	path := req.Path
	switch {
	case req.Method == "GET" && path == "/setup.xml":
		return RouteSetup
	case strings.HasSuffix(path, "/eventservice.xml"):
		return RouteEventService
	case strings.HasSuffix(path, "/metainfoservice.xml"):
		return RouteMetaInfo
	case strings.HasSuffix(path, "/insightservice.xml"):
		return RouteInsight
	case req.Method == "POST" && path == "/upnp/control/timesync1":
		return RouteTimeSync
	case req.Method == "POST" && (path == "/upnp/control/basicevent1" || path == "/upnp/control/insight1"):
		return RouteControl
	default:
		return RouteUnknown
	}
}

// control runs a SOAP action and returns the response body.
func (h *Handler) control(ctx context.Context, req Request) (string, error) {
	action, ok := ParseSOAPAction(req.SOAPAction)
	if !ok {
		return "", ErrUnrecognized
	}
	name := h.plugin.Name()

	switch {
	case action.Is(ServiceBasicEvent, ActionGetBinaryState):
		logging.Info("Attempting to get state", zap.String("device", name))
		state := h.plugin.State(ctx)
		logging.Info("Device state", zap.String("device", name), zap.String("state", string(state)))

		var err error
		value := "0"
		switch state {
		case plugin.StateOn:
			value = "1"
		case plugin.StateOff:
		default:
			err = ErrUnknownState
		}
		h.action(ActionGetBinaryState, err)
		if err != nil {
			return "", err
		}
		return ActionResponse("Get", "BinaryState", ServiceBasicEvent, value), nil

	case action.Is(ServiceInsight, ActionGetInsightParams):
		logging.Info("Returning insight parameters", zap.String("device", name))
		h.action(ActionGetInsightParams, nil)
		return ActionResponse("Get", "InsightParams", ServiceInsight, InsightParams(h.OnTime())), nil

	case action.Is(ServiceBasicEvent, ActionSetBinaryState):
		on, ok := ParseBinaryState(req.Body)
		if !ok {
			h.action(ActionSetBinaryState, ErrUnrecognized)
			return "", ErrUnrecognized
		}
		return h.setBinaryState(ctx, on)

	case action.Is(ServiceBasicEvent, ActionGetFriendlyName):
		logging.Info("Returning friendly name", zap.String("device", name))
		h.action(ActionGetFriendlyName, nil)
		return ActionResponse("Get", "FriendlyName", ServiceBasicEvent, name), nil
	}

	return "", ErrUnrecognized
}

func (h *Handler) setBinaryState(ctx context.Context, on bool) (string, error) {
	name := h.plugin.Name()

	var err error
	var value string
	var state plugin.State
	if on {
		logging.Info("Attempting to turn on", zap.String("device", name))
		err = plugin.TurnOn(ctx, h.plugin)
		value, state = BinaryStateOnValue, plugin.StateOn
	} else {
		logging.Info("Attempting to turn off", zap.String("device", name))
		err = plugin.TurnOff(ctx, h.plugin)
		value, state = BinaryStateOffValue, plugin.StateOff
	}

	h.action(ActionSetBinaryState, err)
	if err != nil {
		return "", err
	}

	for _, o := range h.observers {
		o.StateChanged(name, h.serial, state)
	}
	return ActionResponse("Set", "BinaryState", ServiceBasicEvent, value), nil
}

// Switch turns the device on or off outside of a SOAP request. Observers
// are notified as for SetBinaryState.
func (h *Handler) Switch(ctx context.Context, on bool) error {
	_, err := h.setBinaryState(ctx, on)
	return err
}

func (h *Handler) served(route string) {
	for _, o := range h.observers {
		o.Served(h.plugin.Name(), route)
	}
}

func (h *Handler) action(action string, err error) {
	for _, o := range h.observers {
		o.Action(h.plugin.Name(), action, err)
	}
}
