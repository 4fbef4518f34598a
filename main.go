package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/jdwit/mail-image-extract/cmd"
	"github.com/jdwit/mail-image-extract/internal/config"
	"github.com/jdwit/mail-image-extract/internal/processor"
)

func createSession(endpoint string) (*session.Session, error) {
	if endpoint != "" {
		// localstack
		return session.NewSession(&aws.Config{
			Endpoint:         aws.String(endpoint),
			DisableSSL:       aws.Bool(true),
			S3ForcePathStyle: aws.Bool(true),
		})
	}

	return session.NewSession()
}

func newExtractor(cfg *config.Config) (*processor.Extractor, error) {
	sess, err := createSession(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return processor.NewExtractor(sess, cfg)
}

func main() {
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		log.Println("running in AWS Lambda environment")
		cfg, err := config.Load(config.New())
		if err != nil {
			log.Fatalln(err)
		}
		if err := cfg.RequireSourceBucket(); err != nil {
			log.Fatalln(err)
		}

		ex, err := newExtractor(cfg)
		if err != nil {
			log.Fatalln(err)
		}
		lambda.Start(ex.HandleLambdaEvent)
		return
	}

	log.Println("running in cli mode")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, newExtractor); err != nil {
		stop()
		os.Exit(1)
	}
}
