package entity

import (
	"errors"
	"strconv"
)

// Code is a machine-readable error code shown to API callers.
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidCurrencyPair   Code = "INVALID_CURRENCY_PAIR"
	CodeItemNotFound          Code = "ITEM_NOT_FOUND"
	CodeItemNotPurchasable    Code = "ITEM_NOT_PURCHASABLE"
	CodeOutOfStock            Code = "OUT_OF_STOCK"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeEmptyCart             Code = "EMPTY_CART"
	CodeInsufficientInventory Code = "INSUFFICIENT_INVENTORY"
	CodeDuplicateRequest      Code = "DUPLICATE_REQUEST"
)

// Storage sentinels. Adapters return these; use cases turn them into coded errors.
var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrInventoryUnderflow = errors.New("inventory would go negative")
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // User-displayable message
	Metadata map[string]string // Extra detail, e.g. the offending item reference
	Cause    error             // Wrapped underlying error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error carrying metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &Error{Code: code})
}

// ItemNotFound is returned when a cart item reference does not resolve.
func ItemNotFound(ref string) *Error {
	return WithMetadata(CodeItemNotFound,
		`CartItem "`+ref+`" does not exist.`,
		map[string]string{"item": ref})
}

func itemNotPurchasable(ref string) *Error {
	return WithMetadata(CodeItemNotPurchasable,
		`CartItem "`+ref+`" cannot be purchased.`,
		map[string]string{"item": ref})
}

func outOfStock(ref string) *Error {
	return WithMetadata(CodeOutOfStock,
		`CartItem "`+ref+`" is out of stock.`,
		map[string]string{"item": ref})
}

func insufficientStock(ref string, remaining int) *Error {
	left := strconv.Itoa(remaining)
	return WithMetadata(CodeInsufficientStock,
		`CartItem "`+ref+`" has only `+left+` units left.`,
		map[string]string{"item": ref, "remaining": left})
}

// EmptyCart is returned when purchasing a cart without items.
func EmptyCart() *Error {
	return New(CodeEmptyCart, "Cart cannot be purchased. It is empty.")
}

// InvalidArgument builds an INVALID_ARGUMENT error.
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// NotFound builds a NOT_FOUND error for the given entity kind and reference.
func NotFound(kind Kind, ref string) *Error {
	return WithMetadata(CodeNotFound,
		string(kind)+` "`+ref+`" does not exist.`,
		map[string]string{"kind": string(kind), "ref": ref})
}
