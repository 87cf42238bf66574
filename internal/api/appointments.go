package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CreateAppointment books a new appointment.
func (c *Client) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	var resp struct {
		Data struct {
			Appointment Appointment `json:"appointment"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/appointments", appt, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Appointment, nil
}

// ListAppointments fetches the filtered, paged appointment list (admin and
// doctor dashboards). Zero filter fields are omitted from the query.
func (c *Client) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, Meta, error) {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", fmt.Sprint(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprint(f.Limit))
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Type != "" {
		q.Set("type", f.Type)
	}
	if f.StartDate != "" {
		q.Set("startDate", f.StartDate)
	}
	if f.EndDate != "" {
		q.Set("endDate", f.EndDate)
	}
	path := "/appointments"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	return c.appointmentList(ctx, path)
}

// ListUserAppointments fetches all appointments involving userID, as patient
// or doctor.
func (c *Client) ListUserAppointments(ctx context.Context, userID string) ([]Appointment, Meta, error) {
	return c.appointmentList(ctx, "/appointments/"+userID)
}

func (c *Client) appointmentList(ctx context.Context, path string) ([]Appointment, Meta, error) {
	var resp struct {
		Data struct {
			Appointments []Appointment `json:"appointments"`
			Meta         Meta          `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, Meta{}, err
	}
	if resp.Data.Appointments == nil {
		resp.Data.Appointments = []Appointment{}
	}
	return resp.Data.Appointments, resp.Data.Meta, nil
}

// UpdateAppointmentStatus changes only the status field; the PUT contract
// accepts nothing else.
func (c *Client) UpdateAppointmentStatus(ctx context.Context, id, status string) (*Appointment, error) {
	var resp struct {
		Data struct {
			Appointment Appointment `json:"appointment"`
		} `json:"data"`
	}
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/appointments/"+id, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Appointment, nil
}

// DeleteAppointment cancels and removes an appointment.
func (c *Client) DeleteAppointment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/appointments/"+id, nil, nil)
}

// GetAppointment fetches a single appointment by id.
func (c *Client) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	var resp struct {
		Data struct {
			Appointment Appointment `json:"appointment"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/appointments/single/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Appointment, nil
}
