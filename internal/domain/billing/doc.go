// Package billing contiene la lógica de dominio de facturación mensual y conciliación de pagos:
// tarifa de sitios, numeración, previsualización por período, totales de lote, control de
// montos en cero y derivación del estado de pago. Todas las funciones son puras (sin I/O).
package billing
