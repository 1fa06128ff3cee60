// Package config loads ACARS Hub's environment-variable configuration and
// the immutable reference tables (airlines, ground stations, message
// labels, IATA overrides) it is built from. Nothing here mutates after
// startup: later components read this package's Config by value.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"acarshub/internal/logger"
)

// Config holds every recognized environment variable, already
// parsed and defaulted.
type Config struct {
	DBPath           string
	SaveAll          bool
	SaveDays         int
	AlertSaveDays    int
	BackupPath       string
	AllowRemote      bool
	MinLogLevel      logger.Level
	QuietMessages    bool
	RRDPath          string

	Decoders map[DecoderType]DecoderConfig

	EnableADSB        bool
	ADSBURL           string
	ADSBLat           float64
	ADSBLon           float64
	DisableRangeRings bool
	FlightTrackingURL string

	HeyWhatsThatSiteID string
	HeyWhatsThatAlts   string
	HeyWhatsThatSave   string

	IATAOverrides map[string]IATAOverride

	Host string
	Port int
}

// DecoderType enumerates the five supported datalink decoders.
type DecoderType string

const (
	DecoderACARS DecoderType = "ACARS"
	DecoderVDLM2 DecoderType = "VDL-M2"
	DecoderHFDL  DecoderType = "HFDL"
	DecoderIMSL  DecoderType = "IMS-L"
	DecoderIRDM  DecoderType = "IRDM"
)

// AllDecoders lists every decoder type in a stable order.
var AllDecoders = []DecoderType{DecoderACARS, DecoderVDLM2, DecoderHFDL, DecoderIMSL, DecoderIRDM}

// legacyUDPPort is the historical default UDP port per decoder, used when a
// descriptor token is the bare literal "udp".
var legacyUDPPort = map[DecoderType]int{
	DecoderACARS: 5550,
	DecoderVDLM2: 5555,
	DecoderHFDL:  5556,
	DecoderIMSL:  5557,
	DecoderIRDM:  5558,
}

// DecoderConfig is one decoder's enablement and parsed connection descriptors.
type DecoderConfig struct {
	Enabled     bool
	Connections []Descriptor
}

// ListenType is the transport a Descriptor binds or dials over.
type ListenType string

const (
	ListenUDP ListenType = "udp"
	ListenTCP ListenType = "tcp"
	ListenZMQ ListenType = "zmq"
)

// Descriptor is a single parsed connection endpoint.
type Descriptor struct {
	ListenType ListenType
	Host       string
	Port       int
}

// IATAOverride is one entry of the IATA_OVERRIDE table: an operator-supplied
// IATA->ICAO/name mapping that takes precedence over the airlines table.
type IATAOverride struct {
	IATA string
	ICAO string
	Name string
}

// truthySet is the exact case-insensitive truthy grammar recognized by
// every boolean environment variable.
var truthySet = map[string]bool{
	"1": true, "true": true, "on": true, "enabled": true, "enable": true,
	"yes": true, "y": true, "ok": true, "always": true, "set": true, "external": true,
}

func boolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	return truthySet[strings.ToLower(strings.TrimSpace(v))]
}

func strEnv(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

func intEnv(name string, def int) int {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		logger.Warnf("config: %s=%q is not an integer, using default %d", name, v, def)
		return def
	}
	return n
}

func floatEnv(name string, def float64) float64 {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		logger.Warnf("config: %s=%q is not a float, using default %v", name, v, def)
		return def
	}
	return f
}

// envVarForDecoder returns the ENABLE_* and *_CONNECTIONS variable names for
// a decoder type.
func envVarForDecoder(d DecoderType) (enableVar, connVar string) {
	switch d {
	case DecoderACARS:
		return "ENABLE_ACARS", "ACARS_CONNECTIONS"
	case DecoderVDLM2:
		return "ENABLE_VDLM", "VDLM_CONNECTIONS"
	case DecoderHFDL:
		return "ENABLE_HFDL", "HFDL_CONNECTIONS"
	case DecoderIMSL:
		return "ENABLE_IMSL", "IMSL_CONNECTIONS"
	case DecoderIRDM:
		return "ENABLE_IRDM", "IRDM_CONNECTIONS"
	}
	return "", ""
}

// Load reads environment variables (optionally seeded from a .env file in
// the working directory — a convenience for local runs, never an error if
// absent) into a Config.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warnf("config: could not read .env file: %v", err)
	}

	cfg := Config{
		DBPath:            strEnv("ACARSHUB_DB", "/run/acars/acarshub.db"),
		SaveAll:           boolEnv("DB_SAVEALL", false),
		SaveDays:          intEnv("DB_SAVE_DAYS", 7),
		AlertSaveDays:     intEnv("DB_ALERT_SAVE_DAYS", 120),
		BackupPath:        strEnv("DB_BACKUP", ""),
		AllowRemote:       boolEnv("ALLOW_REMOTE_UPDATES", true),
		MinLogLevel:       logger.ParseLevel(strEnv("MIN_LOG_LEVEL", "info")),
		QuietMessages:     boolEnv("QUIET_MESSAGES", false),
		RRDPath:           strEnv("RRD_PATH", ""),
		EnableADSB:        boolEnv("ENABLE_ADSB", false),
		ADSBURL:           strEnv("ADSB_URL", ""),
		ADSBLat:           floatEnv("ADSB_LAT", 0),
		ADSBLon:           floatEnv("ADSB_LON", 0),
		DisableRangeRings: boolEnv("DISABLE_RANGE_RINGS", false),
		FlightTrackingURL: strEnv("FLIGHT_TRACKING_URL", ""),

		HeyWhatsThatSiteID: strEnv("HEYWHATSTHAT", ""),
		HeyWhatsThatAlts:   strEnv("HEYWHATSTHAT_ALTS", ""),
		HeyWhatsThatSave:   strEnv("HEYWHATSTHAT_SAVE", ""),

		IATAOverrides: parseIATAOverrides(strEnv("IATA_OVERRIDE", "")),

		Host: strEnv("HOST", "0.0.0.0"),
		Port: intEnv("PORT", 80),

		Decoders: make(map[DecoderType]DecoderConfig),
	}

	for _, d := range AllDecoders {
		enableVar, connVar := envVarForDecoder(d)
		enabled := boolEnv(enableVar, true)
		raw := strEnv(connVar, "udp")
		descriptors := ParseDescriptors(raw, legacyUDPPort[d])
		if len(descriptors) == 0 {
			logger.Errorf("config: decoder %s has no usable connection descriptors, disabling", d)
			enabled = false
		}
		cfg.Decoders[d] = DecoderConfig{Enabled: enabled, Connections: descriptors}
	}

	return cfg
}

// ParseDescriptors parses a comma-separated descriptor string.
// Malformed tokens are skipped with a warning; the bare literal "udp" binds
// all interfaces on legacyPort.
func ParseDescriptors(raw string, legacyPort int) []Descriptor {
	var out []Descriptor
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.EqualFold(tok, "udp") {
			out = append(out, Descriptor{ListenType: ListenUDP, Host: "0.0.0.0", Port: legacyPort})
			continue
		}
		schemeSplit := strings.SplitN(tok, "://", 2)
		if len(schemeSplit) != 2 {
			logger.Warnf("config: malformed connection descriptor %q, skipping", tok)
			continue
		}
		scheme := strings.ToLower(schemeSplit[0])
		hostport := schemeSplit[1]
		var lt ListenType
		switch scheme {
		case "udp":
			lt = ListenUDP
		case "tcp":
			lt = ListenTCP
		case "zmq":
			lt = ListenZMQ
		default:
			logger.Warnf("config: unknown scheme %q in descriptor %q, skipping", scheme, tok)
			continue
		}
		idx := strings.LastIndex(hostport, ":")
		if idx < 0 {
			logger.Warnf("config: missing port in descriptor %q, skipping", tok)
			continue
		}
		host, portStr := hostport[:idx], hostport[idx+1:]
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			logger.Warnf("config: invalid port in descriptor %q, skipping", tok)
			continue
		}
		if host == "" {
			host = "0.0.0.0"
		}
		out = append(out, Descriptor{ListenType: lt, Host: host, Port: port})
	}
	return out
}

// parseIATAOverrides parses the "IATA|ICAO|Name;..." grammar.
func parseIATAOverrides(raw string) map[string]IATAOverride {
	overrides := make(map[string]IATAOverride)
	if raw == "" {
		return overrides
	}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "|", 3)
		if len(parts) != 3 {
			logger.Warnf("config: malformed IATA_OVERRIDE entry %q, skipping", entry)
			continue
		}
		iata := strings.ToUpper(strings.TrimSpace(parts[0]))
		overrides[iata] = IATAOverride{
			IATA: iata,
			ICAO: strings.ToUpper(strings.TrimSpace(parts[1])),
			Name: strings.TrimSpace(parts[2]),
		}
	}
	return overrides
}
