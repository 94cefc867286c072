package domain

import "errors"

var ErrUnknownSymbol = errors.New("unknown symbol")
