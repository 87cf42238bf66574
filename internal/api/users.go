package api

import (
	"context"
	"fmt"
	"net/http"
)

// GetUser fetches one user profile.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var resp struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/users/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.User, nil
}

// UpdateUser applies a partial profile update. fields maps JSON field names
// to new values, matching the PATCH contract.
func (c *Client) UpdateUser(ctx context.Context, id string, fields map[string]any) (*User, error) {
	var resp struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, "/users/"+id, fields, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.User, nil
}

// ListDoctorRequests fetches users who have asked to be promoted to doctor.
// Admin only. Returns an empty slice with zeroed meta when there are none.
func (c *Client) ListDoctorRequests(ctx context.Context, page int) ([]User, Meta, error) {
	var resp struct {
		Data struct {
			Users []User `json:"users"`
			Meta  Meta   `json:"meta"`
		} `json:"data"`
	}
	path := "/users?doctorRequest=true"
	if page > 0 {
		path += fmt.Sprintf("&page=%d", page)
	}
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, Meta{}, err
	}
	if resp.Data.Users == nil {
		resp.Data.Users = []User{}
	}
	return resp.Data.Users, resp.Data.Meta, nil
}

// GetDoctor fetches one doctor profile.
func (c *Client) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	var resp struct {
		Data struct {
			Doctor Doctor `json:"doctor"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/doctors/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Doctor, nil
}

// UpdateDoctor replaces a doctor profile (PUT contract — full document).
func (c *Client) UpdateDoctor(ctx context.Context, id string, doc *Doctor) (*Doctor, error) {
	var resp struct {
		Data struct {
			Doctor Doctor `json:"doctor"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPut, "/doctors/"+id, doc, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Doctor, nil
}

// RegisterDoctor promotes the user with userID to doctor, creating the
// doctor profile from the given fields.
func (c *Client) RegisterDoctor(ctx context.Context, userID string, profile *Doctor) (*Doctor, error) {
	var resp struct {
		Data struct {
			Doctor Doctor `json:"doctor"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/doctors/register/"+userID, profile, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Doctor, nil
}

// DeleteDoctor removes a doctor profile. Admin only.
func (c *Client) DeleteDoctor(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/doctors/"+id, nil, nil)
}

// ListDoctors fetches the paged doctor directory.
func (c *Client) ListDoctors(ctx context.Context, page, limit int) ([]Doctor, Meta, error) {
	var resp struct {
		Data struct {
			Doctors []Doctor `json:"doctors"`
			Meta    Meta     `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/doctors"+pageQuery(page, limit), &resp); err != nil {
		return nil, Meta{}, err
	}
	if resp.Data.Doctors == nil {
		resp.Data.Doctors = []Doctor{}
	}
	return resp.Data.Doctors, resp.Data.Meta, nil
}
