// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/tesscache/internal/aws"
	"github.com/staranto/tesscache/internal/config"
	"github.com/staranto/tesscache/internal/meta"
	"github.com/staranto/tesscache/internal/mirror"
)

// newObjectStore builds the S3 client. Tests replace it.
var newObjectStore = func(ctx context.Context, cmd *cli.Command) (mirror.ObjectStore, error) {
	cfg, err := aws.LoadAWSConfig(ctx,
		aws.WithProfile(cmd.String("profile")),
		aws.WithRegion(cmd.String("region")),
	)
	if err != nil {
		return nil, err
	}
	return aws.NewS3(cfg, aws.WithS3Endpoint(cmd.String("endpoint"))), nil
}

func mirrorAction(direction string) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if ShortCircuitTLDR(ctx, cmd, "mirror") {
			return nil
		}

		dir := CacheDir(cmd)
		if dir == "" {
			return errors.New("caching is disabled")
		}
		if cmd.String("bucket") == "" {
			return mirror.ErrNoBucket
		}

		store, err := newObjectStore(ctx, cmd)
		if err != nil {
			return err
		}

		m := &mirror.Mirror{
			Store:  store,
			Bucket: cmd.String("bucket"),
			Prefix: cmd.String("prefix"),
			Dir:    dir,
			DryRun: cmd.Bool("dry-run"),
		}
		log.Debugf("mirror %s: s3://%s/%s <-> %s", direction, m.Bucket, m.Prefix, m.Dir)

		var r mirror.Report
		if direction == "push" {
			r, err = m.Push(ctx)
		} else {
			r, err = m.Pull(ctx)
		}
		if err != nil {
			return err
		}

		verb := direction + "ed"
		if m.DryRun {
			verb = "would " + direction
		}
		fmt.Fprintf(stdout(cmd), "%s %d entries (%s), %d skipped, %d failed\n",
			verb, r.Transferred, humanize.IBytes(uint64(r.Bytes)), r.Skipped, r.Failed)

		if r.Failed > 0 {
			setStatus(cmd, 1)
		}
		return nil
	}
}

func mirrorFlags() []cli.Flag {
	src := altsrc.StringSourcer(config.Config.Source)

	return []cli.Flag{
		&cli.StringFlag{
			Name:  "bucket",
			Usage: "S3 bucket holding the mirror",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("TESSCACHE_MIRROR_BUCKET"),
				yaml.YAML("mirror.bucket", src),
			),
		},
		&cli.StringFlag{
			Name:  "prefix",
			Usage: "key prefix inside the bucket",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("mirror.prefix", src),
			),
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "AWS region",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("mirror.region", src),
			),
		},
		&cli.StringFlag{
			Name:  "profile",
			Usage: "AWS shared config profile",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("mirror.profile", src),
			),
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "S3 compatible endpoint URL",
			Sources: cli.NewValueSourceChain(
				yaml.YAML("mirror.endpoint", src),
			),
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: "report what would be transferred",
		},
	}
}

// MirrorCommandBuilder constructs the "mirror" command and its push and pull
// subcommands.
func MirrorCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "mirror",
		Usage:     "copy cache entries to or from S3",
		UsageText: "tesscache mirror push|pull [options]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Commands: []*cli.Command{
			(&CommandBuilder{
				Name:      "push",
				Usage:     "upload entries the bucket does not have",
				UsageText: "tesscache mirror push [options]",
				Flags:     mirrorFlags(),
				Action:    mirrorAction("push"),
				Meta:      meta,
			}).Build(),
			(&CommandBuilder{
				Name:      "pull",
				Usage:     "download entries the cache does not have",
				UsageText: "tesscache mirror pull [options]",
				Flags:     mirrorFlags(),
				Action:    mirrorAction("pull"),
				Meta:      meta,
			}).Build(),
		},
	}
}
