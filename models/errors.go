package models

// Tipizirane greške koje servisi vraćaju; handleri ih mapiraju na HTTP status
// kodove bez poređenja stringova.

// ValidationError - nedostaje ili je neispravan ulazni podatak.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError - entitet ne postoji, ili ne pripada pozivaocu.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ForbiddenError - zaključan zadatak ili nedovoljna uloga.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

// ConflictError - duplikat jedinstvenog polja (username, email).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// UnauthorizedError - neuspešna autentifikacija (pogrešni kredencijali,
// pogrešan odgovor na sigurnosno pitanje).
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string { return e.Message }
