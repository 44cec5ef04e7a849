package errors

import (
	"errors"
)

// Common errors.
var (
	ErrDeviceNotFound         = errors.New("device not found")
	ErrDeviceNameRequired     = errors.New("device name is required")
	ErrDeviceAddressExists    = errors.New("device with this address already exists")
	ErrDeviceNotProtected     = errors.New("device is not protected")
	ErrDeviceAlreadyProtected = errors.New("device is already protected")
	ErrPasswordRequired       = errors.New("password is required")
	ErrPasswordMismatch       = errors.New("password does not match")
	ErrInvalidDeviceIP        = errors.New("invalid device ip address")
	ErrUnknownScanMethod      = errors.New("unknown scan method")
	ErrScanUnavailable        = errors.New("no scan strategy available for method")
	ErrMergerNotSet           = errors.New("device merger not set")
	ErrRegistryNotInitialized = errors.New("device registry not initialized")
	ErrScannerNotInitialized  = errors.New("scan manager not initialized")
	ErrInvalidStatus          = errors.New("status must be online or offline")
)
