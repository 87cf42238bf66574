package api

import (
	"context"
	"net/http"
)

// CreateVital records a new vitals reading for a patient.
func (c *Client) CreateVital(ctx context.Context, v *Vital) (*Vital, error) {
	var resp struct {
		Data struct {
			Vital Vital `json:"vital"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/vitals", v, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Vital, nil
}

// ListUserVitals fetches the paged vitals history for one patient.
func (c *Client) ListUserVitals(ctx context.Context, userID string, page int) ([]Vital, Meta, error) {
	var resp struct {
		Data struct {
			Vitals []Vital `json:"vitals"`
			Meta   Meta    `json:"meta"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/vitals/"+userID+pageQuery(page, 0), &resp); err != nil {
		return nil, Meta{}, err
	}
	if resp.Data.Vitals == nil {
		resp.Data.Vitals = []Vital{}
	}
	return resp.Data.Vitals, resp.Data.Meta, nil
}

// ListDoctorPatients fetches the patients whose vitals the doctor monitors.
func (c *Client) ListDoctorPatients(ctx context.Context, doctorID string) ([]User, error) {
	var resp struct {
		Data struct {
			Patients []User `json:"patients"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/vitals/patients/"+doctorID, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Patients == nil {
		resp.Data.Patients = []User{}
	}
	return resp.Data.Patients, nil
}

// GetVital fetches a single vitals record by id.
func (c *Client) GetVital(ctx context.Context, id string) (*Vital, error) {
	var resp struct {
		Data struct {
			Vital Vital `json:"vital"`
		} `json:"data"`
	}
	if err := c.get(ctx, "/vitals/single/"+id, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Vital, nil
}

// vitalPatch applies one of the PATCH sub-resource operations and returns the
// updated record.
func (c *Client) vitalPatch(ctx context.Context, id, op string, body any) (*Vital, error) {
	var resp struct {
		Data struct {
			Vital Vital `json:"vital"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPatch, "/vitals/"+id+op, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Vital, nil
}

// AddPrescription appends a prescription to a vitals record.
func (c *Client) AddPrescription(ctx context.Context, vitalID string, p Prescription) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/prescriptions/add", p)
}

// UpdatePrescription replaces an existing prescription entry.
func (c *Client) UpdatePrescription(ctx context.Context, vitalID string, p Prescription) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/prescriptions/update", p)
}

// DeletePrescription removes a prescription entry by id.
func (c *Client) DeletePrescription(ctx context.Context, vitalID, prescriptionID string) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/prescriptions/delete", map[string]string{"_id": prescriptionID})
}

// AddLabTest appends a lab test to a vitals record.
func (c *Client) AddLabTest(ctx context.Context, vitalID string, t LabTest) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/labtests/add", t)
}

// UpdateLabTest replaces an existing lab test entry.
func (c *Client) UpdateLabTest(ctx context.Context, vitalID string, t LabTest) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/labtests/update", t)
}

// DeleteLabTest removes a lab test entry by id.
func (c *Client) DeleteLabTest(ctx context.Context, vitalID, labTestID string) (*Vital, error) {
	return c.vitalPatch(ctx, vitalID, "/labtests/delete", map[string]string{"_id": labTestID})
}

// SetRecommendation replaces the doctor recommendation on a vitals record.
func (c *Client) SetRecommendation(ctx context.Context, vitalID, text string) (*Vital, error) {
	var resp struct {
		Data struct {
			Vital Vital `json:"vital"`
		} `json:"data"`
	}
	body := map[string]string{"recommendation": text}
	if err := c.do(ctx, http.MethodPut, "/vitals/"+vitalID+"/recommendation", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.Vital, nil
}
