package inventory

// Shortage implementa el cálculo de faltante (servicio de dominio).
// Faltante = max(0, Solicitado - Disponible)
func Shortage(requested, available int64) int64 {
	if s := requested - available; s > 0 {
		return s
	}
	return 0
}

// ApplyDelta aplica delta a la cantidad sin permitir valores negativos.
// Devuelve la nueva cantidad y el delta efectivamente aplicado.
func ApplyDelta(quantity, delta int64) (newQuantity, applied int64) {
	newQuantity = quantity + delta
	if newQuantity < 0 {
		newQuantity = 0
	}
	return newQuantity, newQuantity - quantity
}
