package service

import "errors"

var ErrIllegalTransition = errors.New("illegal transition of fulfillment status")
