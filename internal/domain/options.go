package domain

const DefaultDesiredPeriodDays = 90

// Options are the manual overrides of an analysis run. A nil field keeps the
// inferred or default value.
type Options struct {
	StartRowStock     *int           `json:"start_row_stock,omitempty"`
	StartRowOutflow   *int           `json:"start_row_outflow,omitempty"`
	MappingStock      *ColumnMapping `json:"column_mapping_stock,omitempty"`
	MappingOutflow    *ColumnMapping `json:"column_mapping_outflow,omitempty"`
	Category          *Category      `json:"category,omitempty"`
	PatientVolume     *float64       `json:"patient_volume,omitempty"`
	DesiredPeriodDays *int           `json:"desired_period_days,omitempty"`
	Forecast          bool           `json:"forecast,omitempty"`
}

// Validate rejects overrides the engine cannot honor.
func (o Options) Validate() error {
	if o.StartRowStock != nil && *o.StartRowStock < 0 {
		return &OptionsError{Field: "start_row_stock", Reason: "must be zero or positive"}
	}
	if o.StartRowOutflow != nil && *o.StartRowOutflow < 0 {
		return &OptionsError{Field: "start_row_outflow", Reason: "must be zero or positive"}
	}
	if o.MappingStock != nil {
		if err := o.MappingStock.Validate(); err != nil {
			return &OptionsError{Field: "column_mapping_stock", Reason: err.(*OptionsError).Reason}
		}
	}
	if o.MappingOutflow != nil {
		if err := o.MappingOutflow.Validate(); err != nil {
			return &OptionsError{Field: "column_mapping_outflow", Reason: err.(*OptionsError).Reason}
		}
	}
	if o.Category != nil && !o.Category.Valid() {
		return &OptionsError{Field: "category", Reason: "must be medicamentos, insumos or equipamentos"}
	}
	if o.PatientVolume != nil && *o.PatientVolume < 0 {
		return &OptionsError{Field: "patient_volume", Reason: "must be zero or positive"}
	}
	if o.DesiredPeriodDays != nil && *o.DesiredPeriodDays <= 0 {
		return &OptionsError{Field: "desired_period_days", Reason: "must be positive"}
	}
	return nil
}

// Profile returns the category profile to apply, falling back to the default.
func (o Options) Profile() CategoryProfile {
	if o.Category == nil {
		return ProfileFor(DefaultCategory)
	}
	return ProfileFor(*o.Category)
}

// PeriodDays returns the purchase horizon in days.
func (o Options) PeriodDays() int {
	if o.DesiredPeriodDays == nil {
		return DefaultDesiredPeriodDays
	}
	return *o.DesiredPeriodDays
}
