package errors

import "errors"

var (
	ErrCampaignPoolSize       = errors.New("fixed campaign pool must have 2 or 3 active campaigns")
	ErrPlatformUnavailable    = errors.New("traffic platform unavailable")
	ErrDistributionIncomplete = errors.New("distribution failed before all campaigns were assigned")
	ErrAssignmentNotFound     = errors.New("campaign assignment not found")
	ErrInvalidDistribution    = errors.New("invalid distribution input")
)
