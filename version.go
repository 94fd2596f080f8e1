package eventflow

// InstrumentationVersion is reported by the telemetry instrumentation.
const InstrumentationVersion = "0.3.0"
