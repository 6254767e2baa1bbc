package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los casos de uso los envuelven con %w para agregar contexto;
// los adaptadores (HTTP, CLI) los distinguen con errors.Is / errors.As.
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrValidation       = errors.New("entrada inválida")
	ErrOverpayment      = errors.New("el pago excede el saldo pendiente")
	ErrInvalidState     = errors.New("operación no permitida en el estado actual de la factura")
	ErrDuplicateBilling = errors.New("sitio ya facturado en el período")
	ErrPersistence      = errors.New("fallo de persistencia")
	ErrNumberExhausted  = errors.New("no se pudo generar un número de factura único")
)

// Validationf construye un error de validación con detalle.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// InvalidStatef construye un error de estado inválido con detalle.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// DuplicateBillingf construye un error de doble facturación con detalle.
func DuplicateBillingf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDuplicateBilling, fmt.Sprintf(format, args...))
}

// OverpaymentError indica que un pago supera el saldo pendiente de la factura.
type OverpaymentError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
	// Message se rellena con montos formateados por el caller (ver pkg/money); opcional.
	Message string
}

func (e *OverpaymentError) Error() string {
	if e.Message != "" {
		return ErrOverpayment.Error() + ": " + e.Message
	}
	return fmt.Sprintf("%s: monto %s, saldo %s", ErrOverpayment.Error(), e.Amount.StringFixed(2), e.Remaining.StringFixed(2))
}

// Is permite errors.Is(err, ErrOverpayment).
func (e *OverpaymentError) Is(target error) bool { return target == ErrOverpayment }

// PersistenceError envuelve un fallo del almacenamiento indicando la operación.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError envuelve err; devuelve nil si err es nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrPersistence.Error(), e.Op, e.Err)
}

// Unwrap expone tanto el sentinel como la causa original.
func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }
