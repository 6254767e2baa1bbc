package entity

import "fmt"

// Period mes/año de facturación.
type Period struct {
	Month int
	Year  int
}

// Validate verifica rangos razonables de mes y año.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("mes fuera de rango: %d", p.Month)
	}
	if p.Year < 2000 || p.Year > 2100 {
		return fmt.Errorf("año fuera de rango: %d", p.Year)
	}
	return nil
}

// String formato MM/YYYY.
func (p Period) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}
