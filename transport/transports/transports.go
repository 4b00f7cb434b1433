// Package transports registers every built-in transport with
// transport.DefaultRegistry when imported.
package transports

import (
	_ "github.com/drblury/csvflow/transport/aws"
	_ "github.com/drblury/csvflow/transport/channel"
	_ "github.com/drblury/csvflow/transport/http"
	_ "github.com/drblury/csvflow/transport/io"
	_ "github.com/drblury/csvflow/transport/kafka"
	_ "github.com/drblury/csvflow/transport/nats"
	_ "github.com/drblury/csvflow/transport/rabbitmq"
)
