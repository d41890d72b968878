package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const usage = `usage: pubsubsetup PROJECTID,TOPIC1:SUBSCRIPTION11:SUBSCRIPTION12,TOPIC2:SUBSCRIPTION21

Creates the topics and subscriptions if missing. Meant for the pubsub emulator (PUBSUB_EMULATOR_HOST).
`

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)
}

type topology struct {
	projectID string
	topics    map[string][]string
	order     []string
}

func parse(arg string) (*topology, error) {
	items := strings.Split(arg, ",")
	t := &topology{projectID: strings.TrimSpace(items[0]), topics: make(map[string][]string)}
	if t.projectID == "" {
		return nil, fmt.Errorf("missing project id in %q", arg)
	}
	for _, item := range items[1:] {
		parts := strings.Split(item, ":")
		topicID := strings.TrimSpace(parts[0])
		if topicID == "" {
			return nil, fmt.Errorf("missing topic in %q", item)
		}
		if _, ok := t.topics[topicID]; !ok {
			t.order = append(t.order, topicID)
		}
		for _, s := range parts[1:] {
			if s = strings.TrimSpace(s); s != "" {
				t.topics[topicID] = append(t.topics[topicID], s)
			}
		}
		if t.topics[topicID] == nil {
			t.topics[topicID] = []string{}
		}
	}
	return t, nil
}

func setup(ctx context.Context, client *pubsub.Client, t *topology) error {
	for _, topicID := range t.order {
		topic, err := client.CreateTopic(ctx, topicID)
		if status.Code(err) == codes.AlreadyExists {
			topic = client.Topic(topicID)
		} else if err != nil {
			return fmt.Errorf("unable to create topic %s for project %s: %w", topicID, t.projectID, err)
		}

		for _, subscriptionID := range t.topics[topicID] {
			_, err := client.CreateSubscription(ctx, subscriptionID, pubsub.SubscriptionConfig{Topic: topic})
			if err != nil && status.Code(err) != codes.AlreadyExists {
				return fmt.Errorf("unable to create subscription %s on topic %s: %w", subscriptionID, topicID, err)
			}
			log.WithField("project", t.projectID).
				WithField("topic", topicID).
				WithField("subscription", subscriptionID).
				Info("subscription ready")
		}
	}
	return nil
}

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	t, err := parse(flag.Arg(0))
	if err != nil {
		log.WithError(err).Fatal("invalid topology")
	}
	ctx := context.Background()
	client, err := pubsub.NewClient(ctx, t.projectID)
	if err != nil {
		log.WithError(err).WithField("project", t.projectID).Fatal("unable to create pubsub client")
	}
	defer client.Close()

	if err := setup(ctx, client, t); err != nil {
		log.WithError(err).Fatal("pubsub setup failed")
	}
}
