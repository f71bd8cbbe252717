package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Role is the logical meaning of a spreadsheet column.
type Role string

const (
	RoleCode        Role = "code"
	RoleDescription Role = "description"
	RoleUnit        Role = "unit"
	RoleQuantity    Role = "quantity"
)

// Roles lists every role in resolution order.
var Roles = []Role{RoleCode, RoleQuantity, RoleDescription, RoleUnit}

// ColumnMapping maps roles to zero-based column indexes. -1 means unmapped.
// Code and Description may point at the same column when cells read "151 - DIPIRONA".
type ColumnMapping struct {
	Code        int `json:"code"`
	Description int `json:"description"`
	Unit        int `json:"unit"`
	Quantity    int `json:"quantity"`
}

// EmptyMapping returns a mapping with every role unmapped.
func EmptyMapping() ColumnMapping {
	return ColumnMapping{Code: -1, Description: -1, Unit: -1, Quantity: -1}
}

// UnmarshalJSON leaves roles absent from the payload unmapped.
func (m *ColumnMapping) UnmarshalJSON(data []byte) error {
	type plain ColumnMapping
	decoded := plain(EmptyMapping())
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*m = ColumnMapping(decoded)
	return nil
}

// Column returns the column assigned to role, or -1.
func (m ColumnMapping) Column(role Role) int {
	switch role {
	case RoleCode:
		return m.Code
	case RoleDescription:
		return m.Description
	case RoleUnit:
		return m.Unit
	case RoleQuantity:
		return m.Quantity
	}
	return -1
}

// With returns a copy of m with role assigned to col.
func (m ColumnMapping) With(role Role, col int) ColumnMapping {
	switch role {
	case RoleCode:
		m.Code = col
	case RoleDescription:
		m.Description = col
	case RoleUnit:
		m.Unit = col
	case RoleQuantity:
		m.Quantity = col
	}
	return m
}

// Combined reports whether code and description share one column.
func (m ColumnMapping) Combined() bool {
	return m.Code >= 0 && m.Code == m.Description
}

// Uses reports whether col is assigned to any role.
func (m ColumnMapping) Uses(col int) bool {
	return col >= 0 && (m.Code == col || m.Description == col || m.Unit == col || m.Quantity == col)
}

func (m ColumnMapping) String() string {
	return fmt.Sprintf("code=%d description=%d unit=%d quantity=%d", m.Code, m.Description, m.Unit, m.Quantity)
}

var roleAliases = map[string][]Role{
	"code":             {RoleCode},
	"codigo":           {RoleCode},
	"cod":              {RoleCode},
	"description":      {RoleDescription},
	"descricao":        {RoleDescription},
	"produto":          {RoleDescription},
	"unit":             {RoleUnit},
	"unidade":          {RoleUnit},
	"un":               {RoleUnit},
	"quantity":         {RoleQuantity},
	"quantidade":       {RoleQuantity},
	"estoque":          {RoleQuantity},
	"saldo":            {RoleQuantity},
	"saida":            {RoleQuantity},
	"codigo_descricao": {RoleCode, RoleDescription},
	"code_description": {RoleCode, RoleDescription},
}

// ParseColumnMapping reads the "index,role;index,role" override format, e.g.
// "0,codigo;1,descricao;11,unidade;14,quantidade". Roles may be given in
// Portuguese or English; codigo_descricao maps a combined column.
func ParseColumnMapping(text string) (ColumnMapping, error) {
	m := EmptyMapping()
	text = strings.TrimSpace(text)
	if text == "" {
		return m, &OptionsError{Field: "column_mapping", Reason: "empty mapping"}
	}

	for _, pair := range strings.Split(text, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ",", 2)
		if len(parts) != 2 {
			return m, &OptionsError{Field: "column_mapping", Reason: fmt.Sprintf("expected index,role in %q", pair)}
		}
		col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || col < 0 {
			return m, &OptionsError{Field: "column_mapping", Reason: fmt.Sprintf("invalid column index in %q", pair)}
		}
		roles, ok := roleAliases[FoldKey(parts[1])]
		if !ok {
			return m, &OptionsError{Field: "column_mapping", Reason: fmt.Sprintf("unknown role %q", strings.TrimSpace(parts[1]))}
		}
		for _, role := range roles {
			m = m.With(role, col)
		}
	}

	if err := m.Validate(); err != nil {
		return m, err
	}
	return m, nil
}

// Validate checks that the required roles are mapped.
func (m ColumnMapping) Validate() error {
	if m.Code < 0 {
		return &OptionsError{Field: "column_mapping", Reason: "code column is required"}
	}
	if m.Quantity < 0 {
		return &OptionsError{Field: "column_mapping", Reason: "quantity column is required"}
	}
	if m.Quantity == m.Code {
		return &OptionsError{Field: "column_mapping", Reason: "code and quantity must be different columns"}
	}
	return nil
}
