package sqlinline

const QInsertValuation = `--sql 78573ff8-9624-4916-a388-f6eb2ad251cc
insert into valuations (
  id, owner_id, job_id, item_name, maker, era, category, description,
  price_low, price_high, currency, reasoning, reference_urls, image_url, created_at
)
values ($1::uuid, $2::uuid, $3::uuid, $4::text, $5::text, $6::text, $7::text, $8::text,
        $9::numeric, $10::numeric, $11::text, $12::text, $13::text[], $14::text, now())
returning created_at;
`

const QSelectValuationForOwner = `--sql 412f8617-60fe-421b-ad2c-3f4a88c1498a
select id, owner_id, job_id, item_name, maker, era, category, description,
       price_low, price_high, currency, reasoning, reference_urls, image_url, created_at
from valuations
where id = $1::uuid and owner_id = $2::uuid;
`
