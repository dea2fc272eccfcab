package object

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Identity is a parsed Git author/committer line: "name <email> timestamp
// tz", as it appears in a commit or tag object's header.
type Identity struct {
	Name      string
	Email     string
	Timestamp int64
	Timezone  string
}

// ParseIdentity splits a raw "name <email> timestamp tz" line into its
// components. The email delimiters are located from the outside in (last
// '>', then the nearest preceding '<') since a display name is free to
// contain either character.
func ParseIdentity(identity string) (*Identity, error) {
	emailEnd := strings.LastIndex(identity, ">")
	if emailEnd == -1 {
		return nil, fmt.Errorf("invalid identity format: %s", identity)
	}

	emailStart := strings.LastIndex(identity[:emailEnd], "<")
	if emailStart == -1 {
		return nil, fmt.Errorf("invalid identity format: %s", identity)
	}

	name := strings.TrimSpace(identity[:emailStart])
	email := identity[emailStart+1 : emailEnd]

	timeStr := strings.TrimSpace(identity[emailEnd+1:])
	parts := strings.Split(timeStr, " ")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid time format: %s", timeStr)
	}

	timestamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp: %w", err)
	}

	return &Identity{
		Name:      name,
		Email:     email,
		Timestamp: timestamp,
		Timezone:  parts[1],
	}, nil
}

// Time resolves the identity's Unix timestamp into the fixed-offset zone
// its Timezone field describes (Git always writes one, e.g. "+0000" or
// "-0700" — never a named zone).
func (i *Identity) Time() (time.Time, error) {
	if len(i.Timezone) != 5 {
		return time.Time{}, fmt.Errorf("invalid timezone offset format: %s", i.Timezone)
	}

	sign := i.Timezone[0]
	if sign != '+' && sign != '-' {
		return time.Time{}, fmt.Errorf("invalid timezone sign: %c", sign)
	}

	hours, err := strconv.Atoi(i.Timezone[1:3])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid hours: %w", err)
	}
	minutes, err := strconv.Atoi(i.Timezone[3:5])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid minutes: %w", err)
	}

	offset := hours*3600 + minutes*60
	if sign == '-' {
		offset = -offset
	}

	return time.Unix(i.Timestamp, 0).In(time.FixedZone("", offset)), nil
}
