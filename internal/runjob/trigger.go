package runjob

import (
	"context"
	"fmt"
	"log"

	run "cloud.google.com/go/run/apiv2"
	"cloud.google.com/go/run/apiv2/runpb"
)

// Params names a Cloud Run Job execution and the download it should
// perform. Empty fields fall back to the client's defaults.
type Params struct {
	URL        string `json:"url"`
	Bucket     string `json:"bucket,omitempty"`
	ObjectName string `json:"object_name,omitempty"`
	Project    string `json:"project,omitempty"`
	Region     string `json:"region,omitempty"`
	Job        string `json:"job,omitempty"`
}

// Client triggers Cloud Run Job executions. Fire-and-forget: the
// execution is started, never awaited.
type Client struct {
	jobs     *run.JobsClient
	defaults Params
}

func New(ctx context.Context, defaults Params) (*Client, error) {
	jobs, err := run.NewJobsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create jobs client: %w", err)
	}
	return &Client{jobs: jobs, defaults: defaults}, nil
}

// Trigger starts one job execution, passing the download input through
// container env overrides (the same URL/BUCKET/OBJECT_NAME contract the
// job binary reads). Returns the execution's operation name.
func (c *Client) Trigger(ctx context.Context, p Params) (string, error) {
	if p.Project == "" {
		p.Project = c.defaults.Project
	}
	if p.Region == "" {
		p.Region = c.defaults.Region
	}
	if p.Job == "" {
		p.Job = c.defaults.Job
	}

	if p.URL == "" {
		return "", fmt.Errorf("url is required")
	}
	if p.Project == "" || p.Region == "" || p.Job == "" {
		return "", fmt.Errorf("project, region and job must be set (params or env)")
	}

	env := []*runpb.EnvVar{
		{Name: "URL", Values: &runpb.EnvVar_Value{Value: p.URL}},
	}
	if p.Bucket != "" {
		env = append(env, &runpb.EnvVar{Name: "BUCKET", Values: &runpb.EnvVar_Value{Value: p.Bucket}})
	}
	if p.ObjectName != "" {
		env = append(env, &runpb.EnvVar{Name: "OBJECT_NAME", Values: &runpb.EnvVar_Value{Value: p.ObjectName}})
	}

	name := fmt.Sprintf("projects/%s/locations/%s/jobs/%s", p.Project, p.Region, p.Job)
	op, err := c.jobs.RunJob(ctx, &runpb.RunJobRequest{
		Name: name,
		Overrides: &runpb.RunJobRequest_Overrides{
			ContainerOverrides: []*runpb.RunJobRequest_Overrides_ContainerOverride{
				{Env: env},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("run job %s: %w", name, err)
	}

	log.Printf("[Jobs] Triggered %s (%s)", name, op.Name())
	return op.Name(), nil
}

func (c *Client) Close() error {
	return c.jobs.Close()
}
