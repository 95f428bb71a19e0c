package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/pkg/errors"
)

const siteTag = "nwp:site"

// EC2 provisions servers as EC2 instances.
type EC2 struct {
	client ec2iface.EC2API
}

func NewEC2(client ec2iface.EC2API) *EC2 {
	return &EC2{client: client}
}

// NewEC2FromRegion uses the default credential chain.
func NewEC2FromRegion(region string) (*EC2, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return NewEC2(ec2.New(sess)), nil
}

func (e *EC2) Create(ctx context.Context, spec Spec) (Instance, error) {
	in := &ec2.RunInstancesInput{
		ImageId:      aws.String(spec.Image),
		InstanceType: aws.String(spec.Type),
		MinCount:     aws.Int64(1),
		MaxCount:     aws.Int64(1),
		TagSpecifications: []*ec2.TagSpecification{{
			ResourceType: aws.String(ec2.ResourceTypeInstance),
			Tags: []*ec2.Tag{
				{Key: aws.String("Name"), Value: aws.String(spec.Name)},
				{Key: aws.String(siteTag), Value: aws.String(spec.Name)},
			},
		}},
	}
	if spec.KeyName != "" {
		in.KeyName = aws.String(spec.KeyName)
	}
	if spec.SecurityGroup != "" {
		in.SecurityGroupIds = aws.StringSlice([]string{spec.SecurityGroup})
	}
	res, err := e.client.RunInstancesWithContext(ctx, in)
	if err != nil {
		return Instance{}, errors.Wrap(err, "creating instance")
	}
	if len(res.Instances) == 0 {
		return Instance{}, fmt.Errorf("no instance was created")
	}
	return fromEC2(res.Instances[0]), nil
}

func (e *EC2) Get(ctx context.Context, id string) (Instance, error) {
	res, err := e.client.DescribeInstancesWithContext(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: aws.StringSlice([]string{id}),
	})
	if err != nil {
		return Instance{}, errors.Wrapf(err, "describing instance %s", id)
	}
	for _, r := range res.Reservations {
		for _, i := range r.Instances {
			if aws.StringValue(i.InstanceId) == id {
				return fromEC2(i), nil
			}
		}
	}
	return Instance{}, fmt.Errorf("instance %s not found", id)
}

func (e *EC2) Delete(ctx context.Context, id string) error {
	_, err := e.client.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: aws.StringSlice([]string{id}),
	})
	return errors.Wrapf(err, "terminating instance %s", id)
}

func fromEC2(i *ec2.Instance) Instance {
	inst := Instance{
		ID:      aws.StringValue(i.InstanceId),
		Address: aws.StringValue(i.PublicIpAddress),
	}
	if i.State != nil {
		inst.State = aws.StringValue(i.State.Name)
	}
	return inst
}
