package kafka

// RoleEventsTopic defines the Kafka topic for role directory events.
const RoleEventsTopic = "role.events"
