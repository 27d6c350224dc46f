package realtime

import (
	"context"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"go.uber.org/zap"
)

type flightsDispatcher struct {
	h *Handler
}

// pilots may only file flights and ask for clearance.
var pilotEvents = map[string]struct{}{
	ws.AddFlight:  {},
	ws.RequestPDC: {},
}

type updateFlightRequest struct {
	FlightID string             `json:"flightId"`
	Updates  domain.FlightPatch `json:"updates"`
}

type flightRequest struct {
	FlightID string `json:"flightId"`
}

type issuePDCRequest struct {
	FlightID string `json:"flightId"`
	PDC      string `json:"pdc"`
}

type contactMeRequest struct {
	FlightID string `json:"flightId"`
	Message  string `json:"message"`
}

func (d *flightsDispatcher) Join(ctx context.Context, c *ws.Client) {
	flights, err := d.h.flights.List(ctx, c.SessionID, c.Member())
	if err != nil {
		d.h.logger.Warn("Failed to load flight list",
			logging.Fields(logging.WebSocket, logging.Handshake, map[logging.ExtraKey]any{
				logging.SessionID:    c.SessionID,
				logging.ErrorMessage: err.Error(),
			})...)
		flights = []*domain.Flight{}
	}
	c.Send(ws.NewEvent(ws.FlightList, c.RoomID, flights))

	if c.Controller && c.User != nil {
		d.h.tracker.AddController(c.SessionID, presence.Controller{
			UserID:   c.User.ID,
			Username: c.User.Username,
			Avatar:   c.User.Avatar,
		})
	}
}

func (d *flightsDispatcher) Leave(_ context.Context, c *ws.Client) {
	if c.Controller && c.User != nil {
		d.h.tracker.RemoveController(c.SessionID, c.User.ID)
	}
}

func (d *flightsDispatcher) Dispatch(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) {
	if !c.Controller {
		if _, ok := pilotEvents[msg.Type]; !ok {
			d.fail(c, msg.Type, domain.ErrForbidden)
			return
		}
	}

	var err error
	switch msg.Type {
	case ws.AddFlight:
		err = d.addFlight(ctx, c, msg)
	case ws.UpdateFlight:
		err = d.updateFlight(ctx, c, msg)
	case ws.DeleteFlight:
		err = d.deleteFlight(ctx, c, msg)
	case ws.UpdateSession:
		err = d.updateSession(ctx, c, msg)
	case ws.IssuePDC:
		err = d.issuePDC(ctx, c, msg)
	case ws.RequestPDC:
		err = d.requestPDC(ctx, c, msg)
	case ws.ContactMe:
		err = d.contactMe(ctx, c, msg)
	default:
		c.Send(ws.NewError(c.RoomID, "Unknown event: "+msg.Type))
		return
	}

	if err != nil {
		d.fail(c, msg.Type, err)
	}
}

func (d *flightsDispatcher) fail(c *ws.Client, event string, err error) {
	message, internal := describe(err)
	if internal {
		d.h.logger.Error("Flight event failed",
			zap.String("event", event),
			zap.String("session", c.SessionID),
			zap.Error(err),
		)
	}
	c.Send(ws.NewScopedError(ws.FlightError, c.RoomID, event, message))
}

func (d *flightsDispatcher) addFlight(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in domain.Flight
	if err := msg.Decode(&in); err != nil {
		return domain.ErrInvalidInput
	}

	created, err := d.h.flights.Add(ctx, c.SessionID, c.Member(), &in)
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.FlightAdded, c.RoomID, created).To(ws.ControllersAnd(created.UserID)))
	d.h.overview.Notify()
	return nil
}

func (d *flightsDispatcher) updateFlight(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in updateFlightRequest
	if err := msg.Decode(&in); err != nil || in.FlightID == "" || len(in.Updates) == 0 {
		return domain.ErrInvalidInput
	}

	updated, err := d.h.flights.Update(ctx, c.SessionID, in.FlightID, c.Member(), in.Updates)
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.FlightUpdated, c.RoomID, updated).To(ws.ControllersAnd(updated.UserID)))
	d.h.overview.Notify()
	return nil
}

func (d *flightsDispatcher) deleteFlight(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in flightRequest
	if err := msg.Decode(&in); err != nil || in.FlightID == "" {
		return domain.ErrInvalidInput
	}

	var ownerID string
	if f, err := d.h.flights.Get(ctx, c.SessionID, in.FlightID); err == nil {
		ownerID = f.UserID
	}
	if err := d.h.flights.Delete(ctx, c.SessionID, in.FlightID, c.Member()); err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.FlightDeleted, c.RoomID, ws.FlightDeletedPayload{FlightID: in.FlightID}).
		To(ws.ControllersAnd(ownerID)))
	d.h.overview.Notify()
	return nil
}

func (d *flightsDispatcher) updateSession(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in domain.SessionUpdate
	if err := msg.Decode(&in); err != nil {
		return domain.ErrInvalidInput
	}

	updated, err := d.h.sessions.Update(ctx, c.SessionID, c.Member(), in)
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.SessionUpdated, c.RoomID, publicSession(updated)))
	d.h.overview.Notify()
	return nil
}

func (d *flightsDispatcher) issuePDC(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in issuePDCRequest
	if err := msg.Decode(&in); err != nil || in.FlightID == "" {
		return domain.ErrInvalidInput
	}

	updated, err := d.h.flights.IssuePDC(ctx, c.SessionID, in.FlightID, c.Member(), in.PDC)
	if err != nil {
		return err
	}

	audience := ws.ControllersAnd(updated.UserID)
	d.h.core.Publish(ws.NewEvent(ws.PDCIssued, c.RoomID, ws.PDCPayload{
		FlightID: updated.ID,
		Callsign: updated.Callsign,
		PDC:      in.PDC,
		IssuedBy: c.Username(),
	}).To(audience))
	d.h.core.Publish(ws.NewEvent(ws.FlightUpdated, c.RoomID, updated).To(audience))
	return nil
}

func (d *flightsDispatcher) requestPDC(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in flightRequest
	if err := msg.Decode(&in); err != nil || in.FlightID == "" {
		return domain.ErrInvalidInput
	}

	f, err := d.h.flights.RequestPDC(ctx, c.SessionID, in.FlightID, c.Member())
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.PDCRequested, c.RoomID, ws.PDCPayload{
		FlightID: f.ID,
		Callsign: f.Callsign,
	}).To(ws.ControllersAnd(f.UserID)))
	return nil
}

// contactMe goes only to the pilot who filed the flight.
func (d *flightsDispatcher) contactMe(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in contactMeRequest
	if err := msg.Decode(&in); err != nil || in.FlightID == "" {
		return domain.ErrInvalidInput
	}

	f, err := d.h.flights.Get(ctx, c.SessionID, in.FlightID)
	if err != nil {
		return err
	}
	if f.UserID == "" {
		return domain.ErrInvalidInput
	}

	d.h.core.SendToUser(ws.NamespaceFlights, f.UserID, ws.NewEvent(ws.ContactMe, c.RoomID, ws.ContactMePayload{
		FlightID: f.ID,
		Message:  in.Message,
		From:     c.Username(),
	}))
	return nil
}
